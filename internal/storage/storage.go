package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("storage: object not found")

// Store persists tile-set artifacts under slash-separated keys such as
// "{id}/metadata.json" and "{id}/tiles/{z}/{x}/{y}.png".
type Store interface {
	// Put writes the full contents of r under key, replacing any
	// existing object. contentType is advisory and may be ignored by
	// backends that cannot record it.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Get opens the object at key for reading. Callers close the
	// returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes every object with the given prefix. Deleting a
	// prefix with no objects is not an error.
	Delete(ctx context.Context, prefix string) error
}
