package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is wrapped by every adapter when a key is missing.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata is stored alongside an object
type ObjectMetadata struct {
	ContentType     string
	ContentLength   int64
	ContentEncoding string
	LastModified    time.Time
	ETag            string
	UserMetadata    map[string]string
}

// ObjectInfo describes a listed object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Storage is a bucket/key object store. The filesystem adapter maps buckets
// to directories.
type Storage interface {
	// Put stores the object, replacing any previous version. The reader is
	// consumed until EOF.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get opens the object for reading. The caller closes it.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectMetadata, error)

	Delete(ctx context.Context, bucket, key string) error

	Exists(ctx context.Context, bucket, key string) (bool, error)

	// List returns objects under prefix ordered by key
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
