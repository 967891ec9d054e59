// Package graphic turns parsed GenBank features into drawable features with
// a color and a label.
package graphic

import (
	"github.com/biogo/biogo/feat"
	"github.com/biogo/biogo/seq/linear"

	"plasmap/internal/genbank"
)

// DefaultColor fills features whose type has no palette entry.
const DefaultColor = "#b3b3b3"

// SourceType is the feature type that spans the whole record and is never drawn.
const SourceType = "source"

// DefaultPalette returns the built-in type to color table.
func DefaultPalette() map[string]string {
	return map[string]string{
		"CDS":          "#66c2a5",
		"gene":         "#fc8d62",
		"promoter":     "#8da0cb",
		"terminator":   "#e78ac3",
		"rep_origin":   "#a6d854",
		"misc_feature": "#ffd92f",
		"misc_binding": "#e5c494",
	}
}

// Feature is a drawable span. From and To are 0-based and half-open.
type Feature struct {
	From   int
	To     int
	Strand feat.Orientation
	Color  string
	Label  string
	Type   string
	loc    feat.Feature
}

var (
	_ feat.Feature  = Feature{}
	_ feat.Orienter = Feature{}
)

func (f Feature) Start() int                    { return f.From }
func (f Feature) End() int                      { return f.To }
func (f Feature) Len() int                      { return f.To - f.From }
func (f Feature) Name() string                  { return f.Label }
func (f Feature) Description() string           { return f.Type }
func (f Feature) Location() feat.Feature        { return f.loc }
func (f Feature) Orientation() feat.Orientation { return f.Strand }

// Classifier assigns colors by feature type.
type Classifier struct {
	Palette      map[string]string
	DefaultColor string
}

// NewClassifier returns a Classifier using the default palette with the
// entries of overrides applied on top.
func NewClassifier(overrides map[string]string) Classifier {
	p := DefaultPalette()
	for k, v := range overrides {
		p[k] = v
	}
	return Classifier{Palette: p, DefaultColor: DefaultColor}
}

// Color returns the palette color for typ.
func (c Classifier) Color(typ string) string {
	if col, ok := c.Palette[typ]; ok {
		return col
	}
	if c.DefaultColor != "" {
		return c.DefaultColor
	}
	return DefaultColor
}

// Classify maps f to a drawable feature. It reports false for source
// features.
func (c Classifier) Classify(f genbank.Feature) (Feature, bool) {
	if f.Type == SourceType {
		return Feature{}, false
	}
	return Feature{
		From:   f.Start,
		To:     f.End,
		Strand: f.Strand,
		Color:  c.Color(f.Type),
		Label:  label(f),
		Type:   f.Type,
	}, true
}

// label prefers the gene qualifier, then label, then the feature type.
func label(f genbank.Feature) string {
	for _, q := range []string{"gene", "label"} {
		if v, ok := f.Qualifier(q); ok {
			return v
		}
	}
	return f.Type
}

// ClassifyAll classifies fs keeping their order.
func (c Classifier) ClassifyAll(fs []genbank.Feature) []Feature {
	out := make([]Feature, 0, len(fs))
	for _, f := range fs {
		if g, ok := c.Classify(f); ok {
			out = append(out, g)
		}
	}
	return out
}

// Map is the graphic record handed to the renderers.
type Map struct {
	Title    string
	Length   int
	Features []Feature
	Seq      *linear.Seq
}

// NewMap classifies the features of rec. Every feature is located on the
// record sequence.
func NewMap(rec genbank.Record, title string, c Classifier) Map {
	seq := rec.Seq()
	fs := c.ClassifyAll(rec.Features)
	for i := range fs {
		fs[i].loc = seq
	}
	return Map{Title: title, Length: rec.SequenceLength(), Features: fs, Seq: seq}
}
