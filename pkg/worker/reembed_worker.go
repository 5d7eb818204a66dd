package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
	"github.com/studyflow/course-processor/pkg/queue"
)

// ChunkStore is the chunk surface the worker needs.
type ChunkStore interface {
	GetChunk(ctx context.Context, id uuid.UUID) (*models.Chunk, error)
	UpdateChunkEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// Embedder produces the replacement vector.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// ReembedWorker consumes chunk re-embedding tasks queued after manual
// edits. The embedding is recomputed from the edited content and replaced
// wholesale; the chunk's embedding is never partially updated.
type ReembedWorker struct {
	BaseWorker
	chunks   ChunkStore
	embedder Embedder
}

func NewReembedWorker(cfg *Config, chunks ChunkStore, embedder Embedder, log logger.Logger) *ReembedWorker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &ReembedWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log,
		},
		chunks:   chunks,
		embedder: embedder,
	}

	w.mux.HandleFunc(queue.TaskTypeChunkReembed, w.handleReembed)
	return w
}

func (w *ReembedWorker) handleReembed(ctx context.Context, t *asynq.Task) error {
	var payload queue.ReembedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	chunkID, err := uuid.Parse(payload.ChunkID)
	if err != nil {
		return fmt.Errorf("invalid chunk id %q: %w", payload.ChunkID, err)
	}

	chunk, err := w.chunks.GetChunk(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("failed to load chunk: %w", err)
	}

	embedding, err := w.embedder.Generate(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("failed to embed chunk: %w", err)
	}

	if err := w.chunks.UpdateChunkEmbedding(ctx, chunkID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	w.logger.Info("Chunk re-embedded",
		logger.String("chunkId", payload.ChunkID),
	)
	return nil
}
