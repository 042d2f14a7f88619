package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the storage abstraction snapshots are persisted through.
// Implementations must be safe for concurrent use.
//
// Put must be atomic from an external observer's perspective: a reader
// sees either the previous blob or the new one, never a partial write.
type BlobStore interface {
	// Get returns the full contents of a blob, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put atomically replaces the blob contents.
	Put(ctx context.Context, name string, data []byte) error

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
