package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"

	"plasmap/internal/core"
	"plasmap/internal/genbank"
	"plasmap/pkg/domain"
)

const fixture = "../genbank/testdata/pTEST.gb"

func buildTree(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var gz bytes.Buffer
	zw := pgzip.NewWriter(&gz)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	root := t.TempDir()
	files := map[string][]byte{
		"pA.gb":            data,
		"lab/pB.gbk":       data,
		"lab/notes.txt":    []byte("not genbank"),
		"lab/sub/pC.gb.gz": gz.Bytes(),
		".hidden/pD.gb":    data,
		"team/bad.gb":      []byte("LOCUS \xff\xfe\n//\n"),
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key.String()
	}
	return out
}

func TestRunImportsTree(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t)
	svc := core.NewInMemoryService()
	imp := New(svc)

	rep, err := imp.Run(ctx, root)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "lab/pB,lab/pC,public/pA"
	if got := strings.Join(keys(rep.Loaded), ","); got != want {
		t.Fatalf("loaded %s, want %s", got, want)
	}
	if len(rep.Skipped) != 0 || len(rep.Failed) != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !errors.Is(rep.Failed[0].Err, genbank.ErrDecode) || filepath.Base(rep.Failed[0].Path) != "bad.gb" {
		t.Fatalf("unexpected failure %+v", rep.Failed[0])
	}
	if !errors.Is(rep.Err(), genbank.ErrDecode) {
		t.Fatalf("report error should wrap failures: %v", rep.Err())
	}

	again, err := imp.Run(ctx, root)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(again.Loaded) != 0 || len(again.Skipped) != 3 || len(again.Failed) != 1 {
		t.Fatalf("second run should skip existing plasmids: %+v", again)
	}

	cleared, err := New(svc, WithClear(true)).Run(ctx, root)
	if err != nil {
		t.Fatalf("clear run: %v", err)
	}
	if cleared.Cleared != 3 || len(cleared.Loaded) != 3 {
		t.Fatalf("clear run: %+v", cleared)
	}
}

func TestRunDirectoryErrors(t *testing.T) {
	imp := New(core.NewInMemoryService())
	if _, err := imp.Run(context.Background(), filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	file := filepath.Join(t.TempDir(), "pA.gb")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := imp.Run(context.Background(), file); err == nil {
		t.Fatalf("expected error for file root")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := imp.Run(ctx, buildTree(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type failingClear struct {
	Materializer
}

func (failingClear) ClearPlasmids(context.Context, string) (int, error) {
	return 0, errors.New("locked")
}

func TestRunClearFailure(t *testing.T) {
	_, err := New(failingClear{}, WithClear(true)).Run(context.Background(), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected clear error, got %v", err)
	}
}

func TestNamespaceFor(t *testing.T) {
	imp := New(nil, WithDefaultNamespace("shared"))
	root := filepath.FromSlash("/data")
	cases := map[string]string{
		"/data/pA.gb":          "shared",
		"/data/lab/pA.gb":      "lab",
		"/data/lab/deep/pA.gb": "lab",
	}
	for path, want := range cases {
		if got := imp.NamespaceFor(root, filepath.FromSlash(path)); got != want {
			t.Fatalf("NamespaceFor(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestIsGenBankFile(t *testing.T) {
	cases := map[string]bool{
		"pA.gb": true, "pA.GBK": true, "pA.genbank": true, "pA.gb.gz": true,
		"pA.fasta": false, "pA.gz": false, "gb": false,
	}
	for name, want := range cases {
		if got := IsGenBankFile(name); got != want {
			t.Fatalf("IsGenBankFile(%q) = %v", name, got)
		}
	}
}

func TestReportPrint(t *testing.T) {
	rep := Report{
		Cleared: 1200,
		Loaded:  []Entry{{Key: domain.Key{Name: "pA", Namespace: "public"}}},
		Skipped: []Entry{{}, {}},
		Failed:  []Failure{{Path: "bad.gb", Err: errors.New("boom")}},
	}
	var buf bytes.Buffer
	rep.Print(&buf, true)
	out := buf.String()
	for _, want := range []string{
		"cleared 1,200 plasmids\n",
		"  + public/pA\n",
		"  ! bad.gb: boom\n",
		"loaded 1 plasmid, 2 plasmids already present, 1 failure\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("noColor output contains escapes: %q", out)
	}
}
