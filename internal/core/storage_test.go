package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"plasmap/internal/infra/persistence/memory"
	"plasmap/internal/infra/persistence/postgres"
	"plasmap/internal/infra/persistence/postgres/testutil"
	"plasmap/internal/infra/persistence/sqlite"
	"plasmap/pkg/domain"
)

func domainKey(name string) domain.Key { return domain.Key{Name: name} }

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "plasmap.db")

	st, err := OpenStore(ctx, StorageConfig{Driver: " SQLite ", SQLitePath: dbPath})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if s, ok := st.(*sqlite.Store); !ok || s.Path() != dbPath {
		t.Fatalf("unexpected sqlite store %T", st)
	}
	_ = st.Close()

	st, err = OpenStore(ctx, StorageConfig{Driver: StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("unexpected memory store %T", st)
	}

	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	st, err = OpenStore(ctx, StorageConfig{Driver: StoragePostgres, PostgresDSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if _, ok := st.(*postgres.Store); !ok {
		t.Fatalf("unexpected postgres store %T", st)
	}
	_ = st.Close()
}

func TestOpenStoreUnsupported(t *testing.T) {
	_, err := OpenStore(context.Background(), StorageConfig{Driver: "mongo"})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestServiceOverSQLiteStore(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, StorageConfig{SQLitePath: filepath.Join(t.TempDir(), "p.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close() }()
	svc := NewService(st)
	first, created, err := svc.ImportGenBank(ctx, fixture, "")
	if err != nil || !created {
		t.Fatalf("import: %v %v", created, err)
	}
	again, created, err := svc.ImportGenBank(ctx, fixture, "")
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("reimport: %v %v %s", created, err, again.ID)
	}
	if again.GCContent == nil || *again.GCContent != *first.GCContent || again.Features.Raw != first.Features.Raw {
		t.Fatalf("stored fields differ: %+v", again)
	}
}
