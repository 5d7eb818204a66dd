package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEmitter_DeliversInOrder(t *testing.T) {
	em := NewStreamEmitter()

	em.Emit(Event{Type: EventStatus, Payload: StatusPayload{Stage: StageParsingPDF}})
	em.Emit(Event{Type: EventProgress, Payload: ProgressPayload{Current: 1, Total: 2}})
	em.Close()

	var got []EventType
	for e := range em.Events() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []EventType{EventStatus, EventProgress}, got)
}

func TestStreamEmitter_CloseIsIdempotent(t *testing.T) {
	em := NewStreamEmitter()
	em.Close()
	assert.NotPanics(t, em.Close)

	_, ok := <-em.Events()
	assert.False(t, ok)
}

func TestStreamEmitter_EmitAfterAbandonDoesNotBlock(t *testing.T) {
	em := NewStreamEmitter()
	em.Abandon()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the channel buffers; without the abandon
		// path this would wedge.
		for i := 0; i < 1000; i++ {
			em.Emit(Event{Type: EventProgress, Payload: ProgressPayload{Current: i}})
		}
		em.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emitter blocked after consumer abandoned the stream")
	}
}

func TestStreamEmitter_AbandonIsIdempotent(t *testing.T) {
	em := NewStreamEmitter()
	em.Abandon()
	require.NotPanics(t, em.Abandon)
}
