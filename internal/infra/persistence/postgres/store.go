// Package postgres opens the PostgreSQL plasmid store through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"plasmap/internal/infra/persistence/sqlstore"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/plasmap?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a sqlstore.Store bound to a Postgres pool.
type Store struct {
	*sqlstore.Store
}

// NewStore connects to dsn (defaultDSN when empty), verifies the connection
// and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	st, err := sqlstore.Open(ctx, db, sqlstore.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: st}, nil
}

// OverrideSQLOpen swaps the sql.Open used by NewStore and returns a restore
// function. Tests use it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
