package storage

import (
	"context"
	"io"
)

// Storage retains raw uploads keyed by document id so a processed document
// can be exported or re-processed later.
type Storage interface {
	// Store saves the content under key and returns the stored key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get retrieves previously stored content.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes stored content.
	Delete(ctx context.Context, key string) error
}
