// Package memory implements an in-memory snapshot store. Used by tests and
// as a fallback backend when no durable storage is configured.
package memory

import (
	"context"
	"sync"
)

// Store holds the snapshot blob in process memory.
type Store struct {
	mu   sync.RWMutex
	blob []byte

	// SaveErr, when set, is returned by every Save call. Lets tests exercise
	// the persistence-failure path of the tracker.
	SaveErr error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Load implements progress.SnapshotStore.
func (s *Store) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blob == nil {
		return nil, false, nil
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, true, nil
}

// Save implements progress.SnapshotStore.
func (s *Store) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.blob = make([]byte, len(blob))
	copy(s.blob, blob)
	return nil
}
