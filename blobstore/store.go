package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing whole data blobs
// (collection snapshots).
type Store interface {
	// ReadAll reads the entire blob.
	ReadAll(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any prior blob with the
	// same name.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
