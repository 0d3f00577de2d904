package progress

import (
	"context"
)

// SnapshotKey is the single storage key used for the entire aggregate.
const SnapshotKey = "progress:snapshot"

// SnapshotStore is the storage collaborator port. Exactly one logical key is
// used for the entire aggregate; implementations decide where the blob lives
// (SQLite row, Redis key, Postgres row, memory).
//
// Load returns (nil, false, nil) when no snapshot has been persisted yet.
// Save must be atomic per call: a reader never observes a partial blob.
type SnapshotStore interface {
	Load(ctx context.Context) (blob []byte, found bool, err error)
	Save(ctx context.Context, blob []byte) error
}
