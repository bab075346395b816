package domain

import (
	"context"
	"io"
)

// BlobWriter uploads state backups to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves backups from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}
