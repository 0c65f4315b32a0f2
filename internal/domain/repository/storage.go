package repository

import (
	"context"
	"io"
)

// Object key namespaces within the bucket.
const (
	PrefixVideos     = "videos/"
	PrefixThumbnails = "thumbnails/"
	PrefixAvatars    = "avatars/"
)

// ObjectStorage defines the interface for object storage operations.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
// All stored objects are assumed publicly readable.
type ObjectStorage interface {
	// Put stores an object and returns its public URL.
	// size may be -1 when unknown.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)

	// Download retrieves an object from the storage.
	// Caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object from the storage.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the public URL for key.
	PublicURL(key string) string

	// ObjectKey derives the bucket-relative key from a stored URL.
	// Returns ErrUnrecognizedObjectURL when no key can be derived.
	ObjectKey(rawURL string) (string, error)
}
