package embedding

import (
	"context"
	"time"

	"github.com/studyflow/course-processor/pkg/logger"
)

const (
	defaultBatchSize  = 100
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// Client is the provider surface the generator drives.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces embedding vectors in bulk. Batches go to the provider
// in one call; when a batch call fails it degrades to per-text calls with
// bounded retries instead of failing the whole batch. Callers never see a
// partially filled vector slice.
type Generator struct {
	client     Client
	batchSize  int
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     logger.Logger
}

func NewGenerator(client Client, log logger.Logger) *Generator {
	return &Generator{
		client:     client,
		batchSize:  defaultBatchSize,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		sleep:      sleepCtx,
		logger:     log,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Generate embeds one text with up to maxRetries attempts and exponential
// backoff. Only the last attempt's error is surfaced.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := g.baseDelay

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		vector, err := g.client.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if attempt == g.maxRetries {
			break
		}
		g.logger.Warn("Embedding attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, lastErr
}

// GenerateAll embeds every text, splitting into provider-sized batches.
// Result ordering matches the input; the call either returns one vector per
// text or an error.
func (g *Generator) GenerateAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := g.generateBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (g *Generator) generateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.client.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return vectors, nil
	}
	if err != nil {
		g.logger.Warn("Batch embedding failed, falling back to per-text calls",
			logger.Int("batchSize", len(texts)),
			logger.Error(err),
		)
	}

	// Per-text fallback with retry. Any single text failing after retries
	// fails the batch: all-or-nothing.
	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := g.Generate(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}
