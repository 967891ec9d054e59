package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plasmap/internal/genbank"
	"plasmap/pkg/domain"
)

const fixture = "../genbank/testdata/pTEST.gb"

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

type countingParser struct {
	calls atomic.Int32
}

func (p *countingParser) parse(path string) (genbank.Record, error) {
	p.calls.Add(1)
	return genbank.ReadFile(path)
}

func copyFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestImportGenBankMaterializesRecord(t *testing.T) {
	created := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	svc := NewInMemoryService(
		WithClock(stubClock{t: created}),
		WithIDGenerator(func() string { return "id-1" }),
		WithOwner("lab"),
	)
	p, isNew, err := svc.ImportGenBank(context.Background(), fixture, "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !isNew {
		t.Fatalf("expected first import to create")
	}
	if p.ID != "id-1" || p.Name != "pTEST" || p.Namespace != domain.DefaultNamespace || p.Owner != "lab" {
		t.Fatalf("unexpected identity %+v", p)
	}
	if p.Length == nil || *p.Length != 120 || len(p.Sequence) != 120 {
		t.Fatalf("length %v sequence %d", p.Length, len(p.Sequence))
	}
	if p.GCContent == nil || *p.GCContent != 71.67 {
		t.Fatalf("gc = %v", p.GCContent)
	}
	if p.Accession != "TEST0001" || p.Organism != "synthetic DNA construct" || p.Keywords != "synthetic; test" {
		t.Fatalf("unexpected header fields %+v", p)
	}
	if p.Features.Raw == "" || !p.CreatedAt.Equal(created) {
		t.Fatalf("features %q created %v", p.Features.Raw, p.CreatedAt)
	}
}

func TestImportGenBankIsIdempotent(t *testing.T) {
	ctx := context.Background()
	parser := &countingParser{}
	svc := NewInMemoryService(WithParser(parser.parse))
	path := copyFixture(t, "pIdem.gb")

	first, created, err := svc.ImportGenBank(ctx, path, "lab")
	if err != nil || !created {
		t.Fatalf("first import: created=%v err=%v", created, err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, created, err := svc.ImportGenBank(ctx, path, "lab")
	if err != nil {
		t.Fatalf("second import should not read the file: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected existing plasmid, got created=%v id=%s want %s", created, second.ID, first.ID)
	}
	if n := parser.calls.Load(); n != 1 {
		t.Fatalf("parser called %d times", n)
	}
	all, err := svc.ListPlasmids(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %d %v", len(all), err)
	}
}

func TestImportGenBankNamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(WithDefaultNamespace("shared"))
	a, _, err := svc.ImportGenBank(ctx, fixture, "")
	if err != nil {
		t.Fatalf("import default: %v", err)
	}
	b, created, err := svc.ImportGenBank(ctx, fixture, "team")
	if err != nil || !created {
		t.Fatalf("import team: created=%v err=%v", created, err)
	}
	if a.Namespace != "shared" || b.Namespace != "team" || a.ID == b.ID {
		t.Fatalf("unexpected plasmids %s/%s %s/%s", a.Namespace, a.ID, b.Namespace, b.ID)
	}
	team, err := svc.ListPlasmids(ctx, "team")
	if err != nil || len(team) != 1 {
		t.Fatalf("list team: %d %v", len(team), err)
	}
	if n, err := svc.ClearPlasmids(ctx, "shared"); err != nil || n != 1 {
		t.Fatalf("clear shared: %d %v", n, err)
	}
	if _, err := svc.Plasmid(ctx, domain.Key{Name: "pTEST", Namespace: "shared"}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := svc.Plasmid(ctx, domain.Key{Name: " pTEST ", Namespace: "team"})
	if err != nil || got.ID != b.ID {
		t.Fatalf("get team: %v %v", got.ID, err)
	}
}

func TestImportGenBankMissingFile(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := NewInMemoryService(WithMetrics(metrics), WithTracer(tracer))
	_, _, err := svc.ImportGenBank(context.Background(), filepath.Join(t.TempDir(), "nope.gb"), "")
	if !errors.Is(err, genbank.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !metrics.has("import_genbank", false) || !tracer.has("import_genbank", false) {
		t.Fatalf("failure not observed: %+v %+v", metrics.calls, tracer.ended)
	}
	all, _ := svc.ListPlasmids(context.Background(), "")
	if len(all) != 0 {
		t.Fatalf("failed import stored %d plasmids", len(all))
	}
}

func TestImportGenBankConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	path := copyFixture(t, "pRace.gb")

	const workers = 8
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		ids     = make([]string, workers)
		errs    = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, isNew, err := svc.ImportGenBank(ctx, path, "race")
			if isNew {
				created.Add(1)
			}
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d saw id %s, want %s", i, ids[i], ids[0])
		}
	}
	if created.Load() != 1 {
		t.Fatalf("expected exactly one creator, got %d", created.Load())
	}
}

type errStore struct {
	domain.PlasmidStore
	err error
}

func (s errStore) FindPlasmid(context.Context, domain.Key) (domain.Plasmid, bool, error) {
	return domain.Plasmid{}, false, s.err
}

func (s errStore) ListPlasmids(context.Context, string) ([]domain.Plasmid, error) {
	return nil, s.err
}

func (s errStore) DeletePlasmids(context.Context, string) (int, error) { return 0, s.err }

func TestServicePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	parser := &countingParser{}
	svc := NewService(errStore{err: boom}, WithParser(parser.parse))
	ctx := context.Background()
	if _, _, err := svc.ImportGenBank(ctx, fixture, ""); !errors.Is(err, boom) {
		t.Fatalf("import: %v", err)
	}
	if parser.calls.Load() != 0 {
		t.Fatalf("parser should not run when lookup fails")
	}
	if _, err := svc.Plasmid(ctx, domain.Key{Name: "x"}); !errors.Is(err, boom) {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.ListPlasmids(ctx, ""); !errors.Is(err, boom) {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.ClearPlasmids(ctx, ""); !errors.Is(err, boom) {
		t.Fatalf("clear: %v", err)
	}
}

func TestServiceAccessors(t *testing.T) {
	svc := NewInMemoryService()
	if svc.Store() == nil || svc.DefaultNamespace() != domain.DefaultNamespace {
		t.Fatalf("unexpected accessors")
	}
}
