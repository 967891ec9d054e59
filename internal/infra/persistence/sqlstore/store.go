// Package sqlstore implements domain.PlasmidStore over database/sql. The
// sqlite and postgres packages open the connection and pick a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"plasmap/pkg/domain"
)

var _ domain.PlasmidStore = (*Store)(nil)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Schema is applied in order on open; statements must be idempotent.
	Schema []string
}

// SQLite uses ? placeholders and TEXT timestamps.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS plasmids (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			namespace TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			length INTEGER,
			mol_type TEXT,
			definition TEXT NOT NULL DEFAULT '',
			accession TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			organism TEXT NOT NULL DEFAULT '',
			features TEXT NOT NULL,
			sequence TEXT NOT NULL DEFAULT '',
			gc_content REAL,
			created_at TEXT NOT NULL,
			UNIQUE (name, namespace)
		)`,
		`CREATE INDEX IF NOT EXISTS plasmids_namespace_idx ON plasmids (namespace)`,
	},
}

// Postgres uses numbered placeholders and JSONB for the feature block.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS plasmids (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			namespace TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			length INTEGER,
			mol_type TEXT,
			definition TEXT NOT NULL DEFAULT '',
			accession TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			organism TEXT NOT NULL DEFAULT '',
			features JSONB NOT NULL,
			sequence TEXT NOT NULL DEFAULT '',
			gc_content DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (name, namespace)
		)`,
		`CREATE INDEX IF NOT EXISTS plasmids_namespace_idx ON plasmids (namespace)`,
	},
}

var columns = []string{
	"id", "name", "namespace", "owner", "length", "mol_type", "definition", "accession",
	"version", "keywords", "organism", "features", "sequence", "gc_content", "created_at",
}

// Store runs plasmid queries against db.
type Store struct {
	db      *sql.DB
	dialect Dialect
	insert  string
	find    string
}

// Open applies the dialect schema and returns a Store. The Store owns db.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s: apply schema: %w", d.Name, err)
		}
	}
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = d.Placeholder(i + 1)
	}
	s := &Store{db: db, dialect: d}
	s.insert = fmt.Sprintf("INSERT INTO plasmids (%s) VALUES (%s) ON CONFLICT (name, namespace) DO NOTHING",
		strings.Join(columns, ", "), strings.Join(marks, ", "))
	s.find = fmt.Sprintf("SELECT %s FROM plasmids WHERE name = %s AND namespace = %s",
		strings.Join(columns, ", "), d.Placeholder(1), d.Placeholder(2))
	return s, nil
}

// DB exposes the connection pool for tests and maintenance.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// FindPlasmid selects by (name, namespace).
func (s *Store) FindPlasmid(ctx context.Context, key domain.Key) (domain.Plasmid, bool, error) {
	rows, err := s.db.QueryContext(ctx, s.find, key.Name, key.Namespace)
	if err != nil {
		return domain.Plasmid{}, false, fmt.Errorf("%s: find %s: %w", s.dialect.Name, key, err)
	}
	ps, err := scanAll(rows)
	if err != nil {
		return domain.Plasmid{}, false, fmt.Errorf("%s: find %s: %w", s.dialect.Name, key, err)
	}
	if len(ps) == 0 {
		return domain.Plasmid{}, false, nil
	}
	return ps[0], true, nil
}

// insertIgnoringConflict reports whether the row was written.
func (s *Store) insertIgnoringConflict(ctx context.Context, p domain.Plasmid) (bool, error) {
	features, err := p.MarshalFeatures()
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.insert,
		p.ID, p.Name, p.Namespace, p.Owner, p.Length, p.MolType, p.Definition, p.Accession,
		p.Version, p.Keywords, p.Organism, string(features), p.Sequence, p.GCContent,
		p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("%s: insert %s: %w", s.dialect.Name, p.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: insert %s: %w", s.dialect.Name, p.Key(), err)
	}
	return n > 0, nil
}

// CreatePlasmid inserts p and fails with domain.ErrDuplicateKey on conflict.
func (s *Store) CreatePlasmid(ctx context.Context, p domain.Plasmid) (domain.Plasmid, error) {
	ok, err := s.insertIgnoringConflict(ctx, p)
	if err != nil {
		return domain.Plasmid{}, err
	}
	if !ok {
		return domain.Plasmid{}, domain.DuplicateKeyError{Key: p.Key()}
	}
	return p, nil
}

// InsertPlasmidIfAbsent relies on ON CONFLICT DO NOTHING so that concurrent
// callers agree on a single row, then reads the winner back.
func (s *Store) InsertPlasmidIfAbsent(ctx context.Context, p domain.Plasmid) (domain.Plasmid, bool, error) {
	ok, err := s.insertIgnoringConflict(ctx, p)
	if err != nil {
		return domain.Plasmid{}, false, err
	}
	if ok {
		return p, true, nil
	}
	existing, found, err := s.FindPlasmid(ctx, p.Key())
	if err != nil {
		return domain.Plasmid{}, false, err
	}
	if !found {
		return domain.Plasmid{}, false, fmt.Errorf("%w: %s vanished after conflict", domain.ErrNotFound, p.Key())
	}
	return existing, false, nil
}

// ListPlasmids orders by namespace then name.
func (s *Store) ListPlasmids(ctx context.Context, namespace string) ([]domain.Plasmid, error) {
	q := "SELECT " + strings.Join(columns, ", ") + " FROM plasmids"
	var args []any
	if namespace != "" {
		q += " WHERE namespace = " + s.dialect.Placeholder(1)
		args = append(args, namespace)
	}
	q += " ORDER BY namespace, name"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", s.dialect.Name, err)
	}
	ps, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", s.dialect.Name, err)
	}
	return ps, nil
}

// DeletePlasmids removes a namespace, or every row when namespace is empty.
func (s *Store) DeletePlasmids(ctx context.Context, namespace string) (int, error) {
	q := "DELETE FROM plasmids"
	var args []any
	if namespace != "" {
		q += " WHERE namespace = " + s.dialect.Placeholder(1)
		args = append(args, namespace)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: delete: %w", s.dialect.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: delete: %w", s.dialect.Name, err)
	}
	return int(n), nil
}

func scanAll(rows *sql.Rows) (out []domain.Plasmid, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		var (
			p        domain.Plasmid
			length   sql.NullInt64
			molType  sql.NullString
			gc       sql.NullFloat64
			features []byte
			created  timestamp
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Namespace, &p.Owner, &length, &molType, &p.Definition,
			&p.Accession, &p.Version, &p.Keywords, &p.Organism, &features, &p.Sequence, &gc, &created); err != nil {
			return nil, err
		}
		if length.Valid {
			n := int(length.Int64)
			p.Length = &n
		}
		if molType.Valid {
			m := molType.String
			p.MolType = &m
		}
		if gc.Valid {
			g := gc.Float64
			p.GCContent = &g
		}
		if p.Features, err = domain.UnmarshalFeatures(features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", p.Key(), err)
		}
		p.CreatedAt = created.Time
		out = append(out, p)
	}
	return out, rows.Err()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// timestamp scans TIMESTAMPTZ columns and the TEXT timestamps sqlite returns.
type timestamp struct{ time.Time }

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *timestamp) parse(s string) error {
	var firstErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			t.Time = ts.UTC()
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return errors.Join(fmt.Errorf("unparseable timestamp %q", s), firstErr)
}
