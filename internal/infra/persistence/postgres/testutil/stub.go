// Package testutil provides an in-memory database/sql driver that understands
// the handful of statement shapes the plasmid store issues, so the postgres
// backend can be tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn records statements and keeps table rows in memory.
type StubConn struct {
	mu     sync.Mutex
	Execs  []string
	Tables map[string][]map[string]any

	FailPing   bool
	FailExec   bool
	FailQuery  bool
	FailSchema bool
	RowsErr    error
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver and returns a pool bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Rows returns a snapshot of a table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.Tables[table]))
	copy(out, c.Tables[table])
	return out
}

// Statements returns the statements executed so far.
func (c *StubConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Execs...)
}

type stubDriver struct{ conn *StubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; the store never prepares.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var (
	insertRe    = regexp.MustCompile(`(?is)^INSERT INTO\s+(\w+)\s*\(([^)]*)\)\s*VALUES\s*\([^)]*\)(?:\s+ON CONFLICT\s*\(([^)]*)\)\s*DO NOTHING)?$`)
	selectRe    = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(.+?))?(?:\s+ORDER BY\s+(.+))?$`)
	deleteRe    = regexp.MustCompile(`(?is)^DELETE FROM\s+(\w+)(?:\s+WHERE\s+(.+))?$`)
	conditionRe = regexp.MustCompile(`(?i)^(\w+)\s*=\s*\$(\d+)$`)
)

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	query = strings.TrimSpace(query)
	c.Execs = append(c.Execs, query)
	upper := strings.ToUpper(query)
	if strings.HasPrefix(upper, "CREATE ") {
		if c.FailSchema {
			return nil, fmt.Errorf("schema fail")
		}
		return driver.RowsAffected(0), nil
	}
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if m := insertRe.FindStringSubmatch(query); m != nil {
		return c.insert(strings.ToLower(m[1]), splitColumns(m[2]), splitColumns(m[3]), args)
	}
	if m := deleteRe.FindStringSubmatch(query); m != nil {
		return c.delete(strings.ToLower(m[1]), m[2], args)
	}
	return nil, fmt.Errorf("stub cannot execute: %s", query)
}

func (c *StubConn) insert(table string, cols, conflict []string, args []driver.NamedValue) (driver.Result, error) {
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	for _, existing := range c.Tables[table] {
		if len(conflict) > 0 && sameValues(existing, row, conflict) {
			return driver.RowsAffected(0), nil
		}
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) delete(table, where string, args []driver.NamedValue) (driver.Result, error) {
	match, err := parseWhere(where, args)
	if err != nil {
		return nil, err
	}
	var kept []map[string]any
	removed := 0
	for _, row := range c.Tables[table] {
		if match(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	c.Tables[table] = kept
	return driver.RowsAffected(int64(removed)), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	m := selectRe.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return nil, fmt.Errorf("stub cannot query: %s", query)
	}
	cols := splitColumns(m[1])
	match, err := parseWhere(m[3], args)
	if err != nil {
		return nil, err
	}
	var selected []map[string]any
	for _, row := range c.Tables[strings.ToLower(m[2])] {
		if match(row) {
			selected = append(selected, row)
		}
	}
	if order := splitColumns(m[4]); len(order) > 0 {
		sort.SliceStable(selected, func(i, j int) bool {
			for _, col := range order {
				a, b := fmt.Sprint(selected[i][col]), fmt.Sprint(selected[j][col])
				if a != b {
					return a < b
				}
			}
			return false
		})
	}
	values := make([][]driver.Value, 0, len(selected))
	for _, row := range selected {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

// parseWhere understands conjunctions of "col = $n".
func parseWhere(where string, args []driver.NamedValue) (func(map[string]any) bool, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return func(map[string]any) bool { return true }, nil
	}
	want := map[string]any{}
	for _, cond := range regexp.MustCompile(`(?i)\s+AND\s+`).Split(where, -1) {
		m := conditionRe.FindStringSubmatch(strings.TrimSpace(cond))
		if m == nil {
			return nil, fmt.Errorf("stub cannot parse condition %q", cond)
		}
		var n int
		_, _ = fmt.Sscan(m[2], &n)
		if n < 1 || n > len(args) {
			return nil, fmt.Errorf("missing argument $%d", n)
		}
		want[strings.ToLower(m[1])] = args[n-1].Value
	}
	return func(row map[string]any) bool {
		for col, v := range want {
			if row[col] != v {
				return false
			}
		}
		return true
	}, nil
}

func sameValues(a, b map[string]any, cols []string) bool {
	for _, col := range cols {
		if a[col] != b[col] {
			return false
		}
	}
	return true
}

func splitColumns(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
