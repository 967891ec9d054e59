// Package domain defines the persistent plasmid entity, its identity key and
// the storage contract implemented by the persistence backends.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultNamespace is the grouping used when a caller supplies none.
const DefaultNamespace = "public"

// Key identifies a plasmid. A name is only unique within its namespace.
type Key struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// String renders the key as namespace/name.
func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// Normalize trims whitespace and applies the default namespace.
func (k Key) Normalize(defaultNamespace string) Key {
	k.Name = strings.TrimSpace(k.Name)
	k.Namespace = strings.TrimSpace(k.Namespace)
	if k.Namespace == "" {
		k.Namespace = defaultNamespace
	}
	return k
}

// FeatureBlock wraps the verbatim FEATURES section of a GenBank record.
// It serializes as {"raw": "..."}.
type FeatureBlock struct {
	Raw string `json:"raw"`
}

// Plasmid is a stored GenBank record.
type Plasmid struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Namespace  string       `json:"namespace"`
	Owner      string       `json:"owner,omitempty"`
	Length     *int         `json:"length,omitempty"`
	MolType    *string      `json:"mol_type,omitempty"`
	Definition string       `json:"definition"`
	Accession  string       `json:"accession"`
	Version    string       `json:"version"`
	Keywords   string       `json:"keywords"`
	Organism   string       `json:"organism"`
	Features   FeatureBlock `json:"features"`
	Sequence   string       `json:"sequence"`
	GCContent  *float64     `json:"gc_content,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Key returns the identity of the plasmid.
func (p Plasmid) Key() Key {
	return Key{Name: p.Name, Namespace: p.Namespace}
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p Plasmid) Clone() Plasmid {
	cp := p
	if p.Length != nil {
		v := *p.Length
		cp.Length = &v
	}
	if p.MolType != nil {
		v := *p.MolType
		cp.MolType = &v
	}
	if p.GCContent != nil {
		v := *p.GCContent
		cp.GCContent = &v
	}
	return cp
}

// MarshalFeatures encodes the feature block for storage columns.
func (p Plasmid) MarshalFeatures() ([]byte, error) {
	return json.Marshal(p.Features)
}

// UnmarshalFeatures decodes a stored feature block.
func UnmarshalFeatures(data []byte) (FeatureBlock, error) {
	var fb FeatureBlock
	if len(data) == 0 {
		return fb, nil
	}
	err := json.Unmarshal(data, &fb)
	return fb, err
}
