// Package sqlite provides a SQLite localstore backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/louisbranch/bloomy/internal/platform/localstore/sqlite/migrations"
	sqlitemigrate "github.com/louisbranch/bloomy/internal/platform/storage/sqlitemigrate"
)

// Store keeps localstore blobs in a single kv table.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a localstore SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements localstore.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.sqlDB == nil {
		return nil, localstore.ErrUnavailable
	}
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, localstore.ErrNotFound
		}
		return nil, fmt.Errorf("get kv %s: %w", key, err)
	}
	return value, nil
}

// Put implements localstore.Backend.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s == nil || s.sqlDB == nil {
		return localstore.ErrUnavailable
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put kv %s: %w", key, err)
	}
	return nil
}

// Delete implements localstore.Backend.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.sqlDB == nil {
		return localstore.ErrUnavailable
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}
