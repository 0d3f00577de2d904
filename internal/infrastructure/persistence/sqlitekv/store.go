// Package sqlitekv implements the snapshot store on a local SQLite file via
// the pure-Go modernc.org/sqlite driver. This is the default backend: the
// engine targets a single-device app, and a single-file database needs no
// external service.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/learnhub/learnhub-progress/internal/domain/progress"
	"github.com/learnhub/learnhub-progress/internal/domain/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress_snapshots (
	key        TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store persists the snapshot blob in a single SQLite row.
type Store struct {
	db  *sql.DB
	key string
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the snapshot table exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, shared.WrapError("storage", "Open", shared.ErrPersistence, "failed to open sqlite database", err)
	}
	// A single writer owns the aggregate; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, shared.WrapError("storage", "Migrate", shared.ErrPersistence, "failed to create snapshot table", err)
	}
	return &Store{db: db, key: progress.SnapshotKey}, nil
}

// Load implements progress.SnapshotStore.
func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM progress_snapshots WHERE key = ?`, s.key,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, shared.WrapError("storage", "Load", shared.ErrStorageRead, "sqlite read failed", err)
	}
	return blob, true, nil
}

// Save implements progress.SnapshotStore.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress_snapshots (key, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		s.key, blob, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return shared.WrapError("storage", "Save", shared.ErrStorageWrite, "sqlite write failed", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
