package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeChunkReembed recomputes a chunk's embedding after a manual edit.
const TaskTypeChunkReembed = "chunk:reembed"

// ReembedPayload identifies the chunk to re-embed.
type ReembedPayload struct {
	ChunkID string `json:"chunkId"`
}

// Queue enqueues background tasks for the worker process.
type Queue interface {
	EnqueueReembed(ctx context.Context, chunkID string) error
	Close() error
}

// AsynqQueue is the Redis-backed implementation.
type AsynqQueue struct {
	client *asynq.Client
}

// Config defines queue connection settings.
type Config struct {
	RedisAddr string
	RedisDB   int
}

func NewAsynqQueue(cfg *Config) *AsynqQueue {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	return &AsynqQueue{client: client}
}

// EnqueueReembed schedules a re-embedding task. The task id is derived from
// the chunk id so rapid repeated edits collapse into one pending task.
func (q *AsynqQueue) EnqueueReembed(ctx context.Context, chunkID string) error {
	payload, err := json.Marshal(ReembedPayload{ChunkID: chunkID})
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	task := asynq.NewTask(TaskTypeChunkReembed, payload,
		asynq.TaskID(fmt.Sprintf("reembed:%s", chunkID)),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)

	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}
