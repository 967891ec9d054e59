package memory

import (
	"context"
	"testing"

	"plasmap/internal/infra/persistence/storetest"
	"plasmap/pkg/domain"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.PlasmidStore { return NewStore() })
}

func TestFindReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	n := 10
	if _, err := s.CreatePlasmid(ctx, domain.Plasmid{Name: "pA", Namespace: "public", Length: &n}); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _, _ := s.FindPlasmid(ctx, domain.Key{Name: "pA", Namespace: "public"})
	*got.Length = 99
	again, _, _ := s.FindPlasmid(ctx, domain.Key{Name: "pA", Namespace: "public"})
	if *again.Length != 10 {
		t.Fatalf("stored plasmid mutated through a returned copy")
	}
}
