package ingest

import (
	"sync"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/models"
)

// EventType is the wire-level event name for the ingestion stream.
type EventType string

const (
	EventStatus     EventType = "status"
	EventItem       EventType = "item"
	EventProgress   EventType = "progress"
	EventBatchSaved EventType = "batch_saved"
	EventError      EventType = "error"
)

// Stages carried by status events.
const (
	StageParsingPDF = "parsing_pdf"
	StageExtracting = "extracting"
	StageEmbedding  = "embedding"
	StageComplete   = "complete"
	StageError      = "error"
)

// Event is one typed milestone pushed to the caller during a run.
type Event struct {
	Type    EventType
	Payload interface{}
}

type StatusPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type ItemPayload struct {
	Index int               `json:"index"`
	Type  models.ItemType   `json:"type"`
	Data  models.ParsedItem `json:"data"`
}

type ProgressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type BatchSavedPayload struct {
	BatchIndex int      `json:"batchIndex"`
	ChunkIDs   []string `json:"chunkIds"`
}

type ErrorPayload struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

// Emitter receives ordered pipeline events. Close signals that no further
// events will arrive; the terminal event before Close is always a complete
// status or an error.
type Emitter interface {
	Emit(Event)
	Close()
}

// StreamEmitter bridges the orchestrator goroutine to a streaming HTTP
// response. Emit never blocks past consumer abandonment: once Abandon is
// called, remaining events are dropped so a client disconnect cannot wedge
// the run.
type StreamEmitter struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	doneOnce  sync.Once
}

func NewStreamEmitter() *StreamEmitter {
	return &StreamEmitter{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Events is the consumer side of the stream. The channel closes when the
// run is over.
func (s *StreamEmitter) Events() <-chan Event {
	return s.events
}

func (s *StreamEmitter) Emit(e Event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func (s *StreamEmitter) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// Abandon marks the consumer as gone.
func (s *StreamEmitter) Abandon() {
	s.doneOnce.Do(func() { close(s.done) })
}
