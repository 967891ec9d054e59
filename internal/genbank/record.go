// Package genbank reads GenBank flat files into structured records.
//
// Parsing is best effort: missing or malformed sections leave fields unset
// instead of failing. Only I/O and text decoding problems surface as errors.
package genbank

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/feat"
	"github.com/biogo/biogo/seq/linear"
)

var (
	// ErrIO reports that the file could not be opened or read.
	ErrIO = errors.New("genbank: read failed")
	// ErrDecode reports input that is not valid UTF-8 text.
	ErrDecode = errors.New("genbank: invalid utf-8 text")
	// ErrRecordCount reports a file that does not hold exactly one record.
	ErrRecordCount = errors.New("genbank: expected exactly one record")
)

// Record holds the fields extracted from one GenBank entry.
type Record struct {
	Name        string    `json:"name"`
	Length      *int      `json:"length,omitempty"`
	MolType     *string   `json:"mol_type,omitempty"`
	Definition  string    `json:"definition"`
	Accession   string    `json:"accession"`
	Version     string    `json:"version"`
	Keywords    string    `json:"keywords"`
	Organism    string    `json:"organism"`
	FeaturesRaw string    `json:"features_raw"`
	Sequence    string    `json:"sequence"`
	GCContent   *float64  `json:"gc_content,omitempty"`
	Features    []Feature `json:"features,omitempty"`
}

// Feature is one entry of the feature table. Start and End are 0-based and
// half-open.
type Feature struct {
	Type       string              `json:"type"`
	Location   string              `json:"location"`
	Start      int                 `json:"start"`
	End        int                 `json:"end"`
	Strand     feat.Orientation    `json:"strand"`
	Qualifiers map[string][]string `json:"qualifiers,omitempty"`
}

// Qualifier returns the first value of the named qualifier.
func (f Feature) Qualifier(name string) (string, bool) {
	vals, ok := f.Qualifiers[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// SequenceLength is the sequence length when known, else the LOCUS length, else 0.
func (r Record) SequenceLength() int {
	if r.Sequence != "" {
		return len(r.Sequence)
	}
	if r.Length != nil {
		return *r.Length
	}
	return 0
}

// Seq returns the record sequence as a biogo DNA sequence.
func (r Record) Seq() *linear.Seq {
	s := linear.NewSeq(r.Name, alphabet.BytesToLetters([]byte(r.Sequence)), alphabet.DNA)
	s.Desc = r.Definition
	return s
}

// NameFromPath derives a record name from a file path: the base name without
// its extension. A trailing ".gz" is removed first. The LOCUS name inside the
// file is never used.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(base), ".gz") {
		base = base[:len(base)-len(".gz")]
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return base
	}
	return name
}
