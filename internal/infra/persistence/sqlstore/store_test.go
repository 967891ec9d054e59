package sqlstore

import (
	"strings"
	"testing"
	"time"
)

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 30, 0, 500, time.UTC)
	inputs := []any{
		want,
		want.In(time.FixedZone("CET", 3600)),
		want.Format(time.RFC3339Nano),
		[]byte(want.Format(time.RFC3339Nano)),
		want.Format("2006-01-02 15:04:05.999999999-07:00"),
	}
	for _, in := range inputs {
		var ts timestamp
		if err := ts.Scan(in); err != nil {
			t.Fatalf("scan %v: %v", in, err)
		}
		if !ts.Equal(want) || ts.Location() != time.UTC {
			t.Fatalf("scan %v = %v", in, ts.Time)
		}
	}
	var ts timestamp
	if err := ts.Scan(nil); err != nil || !ts.IsZero() {
		t.Fatalf("nil scan: %v %v", err, ts.Time)
	}
	if err := ts.Scan("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := ts.Scan(42); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestDialectPlaceholders(t *testing.T) {
	if SQLite.Placeholder(3) != "?" || Postgres.Placeholder(3) != "$3" {
		t.Fatalf("unexpected placeholders")
	}
	for _, d := range []Dialect{SQLite, Postgres} {
		if len(d.Schema) == 0 || !strings.Contains(d.Schema[0], "UNIQUE (name, namespace)") {
			t.Fatalf("%s schema lacks the key constraint", d.Name)
		}
	}
}
