package storage

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStore is the narrow cloud object-store collaborator contract.
// Implementations return platform/errors codes: NotFound for missing objects,
// Permission for authorization failures, Unavailable for transient API errors.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, length int64) error
	Head(ctx context.Context, bucket, key string) (int64, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	DeletePrefix(ctx context.Context, bucket, prefix string) error
}
