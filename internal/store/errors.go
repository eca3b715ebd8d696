// Package store persists episode documents and their embeddings in
// per-season JSON partitions on disk.
package store

import "errors"

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested season or episode does not exist.
	// This is a normal outcome for point lookups, not a failure.
	ErrNotFound = errors.New("episode not found")

	// ErrStoreIO indicates a file read, write, or parse failure.
	// Read paths degrade to skip-and-log where semantically safe; write
	// paths abort the enclosing operation.
	ErrStoreIO = errors.New("store io failure")
)
