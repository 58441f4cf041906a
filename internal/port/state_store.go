package port

import (
	"context"
	"errors"
)

var ErrVersionConflict = errors.New("state version conflict")

// Snapshot is a consistent read of the requested keys. Keys absent from the
// store are absent from Values.
type Snapshot struct {
	Version uint64
	Values  map[string][]byte
}

type StateStore interface {
	// Load reads keys together with the store version they were read at
	Load(ctx context.Context, keys []string) (Snapshot, error)

	// Commit writes every value atomically, but only if the store is still at version.
	// Returns ErrVersionConflict otherwise and writes nothing
	Commit(ctx context.Context, version uint64, values map[string][]byte) error
}
