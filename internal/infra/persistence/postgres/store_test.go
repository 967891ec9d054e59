package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"plasmap/internal/infra/persistence/postgres/testutil"
	"plasmap/internal/infra/persistence/storetest"
	"plasmap/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Errorf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	defer restore()
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, conn
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.PlasmidStore {
		s, _ := openStub(t)
		return s
	})
}

func TestNewStoreAppliesSchemaWithNumberedPlaceholders(t *testing.T) {
	s, conn := openStub(t)
	defer func() { _ = s.Close() }()
	stmts := conn.Statements()
	if len(stmts) < 2 || !strings.Contains(stmts[0], "features JSONB") {
		t.Fatalf("schema not applied: %v", stmts)
	}
	if _, err := s.CreatePlasmid(context.Background(), storetest.Sample("pA", "public")); err != nil {
		t.Fatalf("create: %v", err)
	}
	last := conn.Statements()[len(conn.Statements())-1]
	if !strings.Contains(last, "$15") || !strings.Contains(last, "ON CONFLICT (name, namespace) DO NOTHING") {
		t.Fatalf("unexpected insert statement %s", last)
	}
	rows := conn.Rows("plasmids")
	if len(rows) != 1 || rows[0]["features"] != `{"raw":"     gene            1..10\n                     /gene=\"bla\""}` {
		t.Fatalf("unexpected stored row %v", rows)
	}
}

func TestNewStoreFailures(t *testing.T) {
	ctx := context.Background()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore(ctx, "postgres://x"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open failure, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping failure, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	conn.FailSchema = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "apply schema") {
		t.Fatalf("expected schema failure, got %v", err)
	}
}

func TestStoreSurfacesDriverErrors(t *testing.T) {
	ctx := context.Background()
	s, conn := openStub(t)
	defer func() { _ = s.Close() }()
	conn.FailQuery = true
	if _, _, err := s.FindPlasmid(ctx, domain.Key{Name: "x", Namespace: "public"}); err == nil {
		t.Fatalf("expected find error")
	}
	if _, err := s.ListPlasmids(ctx, ""); err == nil {
		t.Fatalf("expected list error")
	}
	conn.FailQuery = false
	conn.FailExec = true
	if _, err := s.CreatePlasmid(ctx, storetest.Sample("pA", "public")); err == nil || errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected driver error, got %v", err)
	}
	if _, _, err := s.InsertPlasmidIfAbsent(ctx, storetest.Sample("pA", "public")); err == nil {
		t.Fatalf("expected insert error")
	}
	if _, err := s.DeletePlasmids(ctx, "public"); err == nil {
		t.Fatalf("expected delete error")
	}
	conn.FailExec = false
	conn.RowsErr = errors.New("broken cursor")
	if _, err := s.ListPlasmids(ctx, ""); err == nil {
		t.Fatalf("expected rows error")
	}
}
