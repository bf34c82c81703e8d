// Package storage puts uploaded documents into object storage and hands
// out time-limited download links for reviewers.
package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the blob-storage collaborator.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// PresignGet returns a URL that downloads key until ttl elapses.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
