package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the document lifecycle state. It is the single source of truth
// for whether retrieval may read a document's chunks.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
	StatusDraft      Status = "draft"
)

// DocKind selects the extraction strategy for an upload.
type DocKind string

const (
	KindLecture    DocKind = "lecture"
	KindExam       DocKind = "exam"
	KindAssignment DocKind = "assignment"
)

// Document is the parent record of a set of chunks. Chunks cascade on delete.
type Document struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Name          string    `json:"name"`
	Kind          DocKind   `json:"kind"`
	Status        Status    `json:"status"`
	StatusMessage string    `json:"statusMessage,omitempty"`
	School        string    `json:"school,omitempty"`
	Course        string    `json:"course,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Chunk is a persisted, independently retrievable unit of extracted content.
// Embedding is nil until computed and is only ever replaced wholesale.
type Chunk struct {
	ID         uuid.UUID     `json:"id"`
	DocumentID uuid.UUID     `json:"documentId"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Embedding  []float32     `json:"-"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ExtractedPage is one page of raw PDF text, 1-based.
type ExtractedPage struct {
	Number int
	Text   string
}

// ScoredChunk pairs a chunk with a ranking score from one retrieval signal.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
