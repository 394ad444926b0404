package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Open for a key that was never uploaded.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores generated export artifacts.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Open streams a stored object. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the objects under prefix, oldest first.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// PresignedURL returns a direct download URL, or "" when the backend
	// cannot serve objects itself and they must be streamed through Open.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Ping(ctx context.Context) error
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}
