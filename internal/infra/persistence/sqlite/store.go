// Package sqlite opens the embedded SQLite plasmid store (modernc.org/sqlite,
// no cgo). It is the default backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"plasmap/internal/infra/persistence/sqlstore"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "plasmap.db"

// Store is a sqlstore.Store bound to a database file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	st, err := sqlstore.Open(ctx, db, sqlstore.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: st, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
