// Package blobstore provides the storage abstraction altcache persists
// snapshots through.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with atomic replace via temp file
//     and rename
//   - MemoryStore: in-memory store for testing
//   - minio.Store: S3-compatible object storage (subpackage)
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom backends:
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)   // Full read
//	    Put(ctx, name, data) error       // Atomic replace
//	    Exists(ctx, name) (bool, error)
//	    Delete(ctx, name) error
//	}
package blobstore
