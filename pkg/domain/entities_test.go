package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestKeyNormalize(t *testing.T) {
	got := Key{Name: "  pUC19 ", Namespace: ""}.Normalize(DefaultNamespace)
	if got.Name != "pUC19" || got.Namespace != DefaultNamespace {
		t.Fatalf("unexpected key %+v", got)
	}
	if got.String() != "public/pUC19" {
		t.Fatalf("unexpected key string %q", got.String())
	}
	kept := Key{Name: "x", Namespace: "alice"}.Normalize(DefaultNamespace)
	if kept.Namespace != "alice" {
		t.Fatalf("explicit namespace overwritten: %+v", kept)
	}
}

func TestPlasmidCloneIsDeep(t *testing.T) {
	length := 10
	gc := 40.0
	mol := "DNA"
	p := Plasmid{Name: "a", Length: &length, GCContent: &gc, MolType: &mol}
	cp := p.Clone()
	*cp.Length = 99
	*cp.GCContent = 1
	*cp.MolType = "RNA"
	if *p.Length != 10 || *p.GCContent != 40 || *p.MolType != "DNA" {
		t.Fatalf("clone shares pointers with original")
	}
}

func TestFeatureBlockWireShape(t *testing.T) {
	p := Plasmid{Features: FeatureBlock{Raw: "     source 1..10"}}
	data, err := p.MarshalFeatures()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"raw":"     source 1..10"}` {
		t.Fatalf("unexpected feature json %s", data)
	}
	fb, err := UnmarshalFeatures(data)
	if err != nil || fb.Raw != p.Features.Raw {
		t.Fatalf("round trip: %v %+v", err, fb)
	}
	if fb, err := UnmarshalFeatures(nil); err != nil || fb.Raw != "" {
		t.Fatalf("empty payload should decode to zero block: %v %+v", err, fb)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil || len(generic) != 1 {
		t.Fatalf("feature block must carry a single raw key: %v", generic)
	}
}

func TestDuplicateKeyErrorMatchesSentinel(t *testing.T) {
	err := DuplicateKeyError{Key: Key{Name: "p1", Namespace: "public"}}
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected errors.Is to match ErrDuplicateKey")
	}
	if !strings.Contains(err.Error(), "public/p1") {
		t.Fatalf("error should name the key: %v", err)
	}
}
