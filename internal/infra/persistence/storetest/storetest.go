// Package storetest holds the behavioural suite every domain.PlasmidStore
// backend runs in its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"plasmap/pkg/domain"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) domain.PlasmidStore

// Sample returns a fully populated plasmid for key.
func Sample(name, namespace string) domain.Plasmid {
	length := 2686
	mol := "DNA"
	gc := 50.12
	return domain.Plasmid{
		ID:         fmt.Sprintf("id-%s-%s", namespace, name),
		Name:       name,
		Namespace:  namespace,
		Owner:      "lab",
		Length:     &length,
		MolType:    &mol,
		Definition: "cloning vector " + name,
		Accession:  "L09137",
		Version:    "L09137.2",
		Keywords:   "cloning vector",
		Organism:   "synthetic DNA construct",
		Features:   domain.FeatureBlock{Raw: "     gene            1..10\n                     /gene=\"bla\""},
		Sequence:   "ACGT",
		GCContent:  &gc,
		CreatedAt:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(*testing.T, domain.PlasmidStore)
	}{
		{"RoundTrip", testRoundTrip},
		{"UnsetFields", testUnsetFields},
		{"CreateDuplicate", testCreateDuplicate},
		{"InsertIfAbsent", testInsertIfAbsent},
		{"ConcurrentInsertIfAbsent", testConcurrentInsert},
		{"ListAndDelete", testListAndDelete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func testRoundTrip(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	want := Sample("pUC19", "public")
	if _, err := s.CreatePlasmid(ctx, want); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := s.FindPlasmid(ctx, want.Key())
	if err != nil || !ok {
		t.Fatalf("find: %v %v", ok, err)
	}
	if got.ID != want.ID || got.Owner != want.Owner || got.Definition != want.Definition ||
		got.Accession != want.Accession || got.Version != want.Version || got.Keywords != want.Keywords ||
		got.Organism != want.Organism || got.Sequence != want.Sequence || got.Features != want.Features {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if got.Length == nil || *got.Length != *want.Length || got.MolType == nil || *got.MolType != *want.MolType ||
		got.GCContent == nil || *got.GCContent != *want.GCContent {
		t.Fatalf("optional fields lost: %v %v %v", got.Length, got.MolType, got.GCContent)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if _, ok, err := s.FindPlasmid(ctx, domain.Key{Name: "pUC19", Namespace: "other"}); err != nil || ok {
		t.Fatalf("key must include the namespace: %v %v", ok, err)
	}
}

func testUnsetFields(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	p := domain.Plasmid{ID: "bare", Name: "bare", Namespace: "public", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := s.CreatePlasmid(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := s.FindPlasmid(ctx, p.Key())
	if err != nil || !ok {
		t.Fatalf("find: %v %v", ok, err)
	}
	if got.Length != nil || got.MolType != nil || got.GCContent != nil {
		t.Fatalf("unset fields came back set: %v %v %v", got.Length, got.MolType, got.GCContent)
	}
	if got.Features.Raw != "" || got.Sequence != "" {
		t.Fatalf("unexpected content %+v", got)
	}
}

func testCreateDuplicate(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	if _, err := s.CreatePlasmid(ctx, Sample("pA", "public")); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := Sample("pA", "public")
	dup.ID = "second"
	_, err := s.CreatePlasmid(ctx, dup)
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var dke domain.DuplicateKeyError
	if !errors.As(err, &dke) || dke.Key != dup.Key() {
		t.Fatalf("expected DuplicateKeyError for %s, got %v", dup.Key(), err)
	}
	if _, err := s.CreatePlasmid(ctx, Sample("pA", "teamB")); err != nil {
		t.Fatalf("same name in another namespace: %v", err)
	}
}

func testInsertIfAbsent(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	first := Sample("pB", "public")
	got, created, err := s.InsertPlasmidIfAbsent(ctx, first)
	if err != nil || !created || got.ID != first.ID {
		t.Fatalf("first insert: %v %v %+v", created, err, got)
	}
	second := Sample("pB", "public")
	second.ID = "other"
	second.Definition = "changed"
	got, created, err = s.InsertPlasmidIfAbsent(ctx, second)
	if err != nil || created {
		t.Fatalf("second insert: %v %v", created, err)
	}
	if got.ID != first.ID || got.Definition != first.Definition {
		t.Fatalf("existing plasmid must win, got %+v", got)
	}
}

func testConcurrentInsert(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := Sample("pRace", "public")
			p.ID = fmt.Sprintf("worker-%d", i)
			got, ok, err := s.InsertPlasmidIfAbsent(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				created++
			}
			ids[got.ID] = struct{}{}
		}(i)
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("concurrent inserts failed: %v", errs)
	}
	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected one creation and one identity, got %d creations and ids %v", created, ids)
	}
}

func testListAndDelete(t *testing.T, s domain.PlasmidStore) {
	ctx := context.Background()
	for _, k := range []domain.Key{{Name: "pZ", Namespace: "public"}, {Name: "pA", Namespace: "teamB"}, {Name: "pA", Namespace: "public"}} {
		if _, err := s.CreatePlasmid(ctx, Sample(k.Name, k.Namespace)); err != nil {
			t.Fatalf("create %s: %v", k, err)
		}
	}
	all, err := s.ListPlasmids(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, p := range all {
		keys = append(keys, p.Key().String())
	}
	if fmt.Sprint(keys) != "[public/pA public/pZ teamB/pA]" {
		t.Fatalf("unexpected order %v", keys)
	}
	public, err := s.ListPlasmids(ctx, "public")
	if err != nil || len(public) != 2 {
		t.Fatalf("namespace filter: %v %d", err, len(public))
	}
	n, err := s.DeletePlasmids(ctx, "public")
	if err != nil || n != 2 {
		t.Fatalf("delete namespace: %v %d", err, n)
	}
	if _, ok, _ := s.FindPlasmid(ctx, domain.Key{Name: "pA", Namespace: "teamB"}); !ok {
		t.Fatalf("delete removed another namespace")
	}
	n, err = s.DeletePlasmids(ctx, "")
	if err != nil || n != 1 {
		t.Fatalf("delete all: %v %d", err, n)
	}
	if rest, _ := s.ListPlasmids(ctx, ""); len(rest) != 0 {
		t.Fatalf("expected empty store, got %d", len(rest))
	}
}
