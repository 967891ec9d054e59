package genbank

import (
	"math"
	"strings"
)

// CleanSequence keeps only the letters a, c, g and t (any case) and returns
// them uppercased.
func CleanSequence(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 'A', 'C', 'G', 'T':
			b.WriteByte(c)
		case 'a', 'c', 'g', 't':
			b.WriteByte(c - 'a' + 'A')
		}
	}
	return b.String()
}

// GCContent returns the G+C percentage of an uppercase sequence rounded to
// two decimals, or nil for an empty sequence.
func GCContent(seq string) *float64 {
	if seq == "" {
		return nil
	}
	gc := strings.Count(seq, "G") + strings.Count(seq, "C")
	v := math.Round(100*float64(gc)/float64(len(seq))*100) / 100
	return &v
}
