package testutil

import (
	"context"
	"testing"
)

func TestStubInsertSelectDelete(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS t (a TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	insert := "INSERT INTO t (a, b) VALUES ($1, $2) ON CONFLICT (a) DO NOTHING"
	for _, v := range []string{"z", "y", "z"} {
		if _, err := db.ExecContext(ctx, insert, v, "x"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if got := len(conn.Rows("t")); got != 2 {
		t.Fatalf("conflicting insert stored, rows=%d", got)
	}
	rows, err := db.QueryContext(ctx, "SELECT a, b FROM t WHERE b = $1 ORDER BY a", "x")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	var order []string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			t.Fatalf("scan: %v", err)
		}
		order = append(order, a)
	}
	_ = rows.Close()
	if len(order) != 2 || order[0] != "y" {
		t.Fatalf("unexpected order %v", order)
	}
	res, err := db.ExecContext(ctx, "DELETE FROM t WHERE a = $1", "y")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("rows affected = %d", n)
	}
	if _, err := db.ExecContext(ctx, "UPDATE t SET a = 1"); err == nil {
		t.Fatalf("expected unsupported statement error")
	}
	if len(conn.Statements()) != 6 {
		t.Fatalf("statements = %v", conn.Statements())
	}
}

func TestStubFailures(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()
	conn.FailPing = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailQuery = true
	if _, err := db.QueryContext(ctx, "SELECT a FROM t"); err == nil {
		t.Fatalf("expected query failure")
	}
	conn.FailExec = true
	if _, err := db.ExecContext(ctx, "DELETE FROM t"); err == nil {
		t.Fatalf("expected exec failure")
	}
}
