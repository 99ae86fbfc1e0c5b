package storage

import (
	"context"
	"io"
)

// Object describes a stored file. Key is the storage-internal identifier
// and is what callers pass back to Delete; URL is publicly reachable.
type Object struct {
	URL string
	Key string
}

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores content from the reader under the given key.
	// The size parameter is the expected content size (-1 if unknown).
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)

	// Delete removes the content with the given key. Deleting a key that
	// does not exist is not an error.
	Delete(ctx context.Context, key string) error
}
