package genbank

import (
	"reflect"
	"testing"

	"github.com/biogo/biogo/feat"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		loc    string
		start  int
		end    int
		strand feat.Orientation
		ok     bool
	}{
		{"1..10", 0, 10, feat.Forward, true},
		{"<1..>200", 0, 200, feat.Forward, true},
		{"5", 4, 5, feat.Forward, true},
		{"complement(30..90)", 29, 90, feat.Reverse, true},
		{"complement(join(30..60,70..90))", 29, 90, feat.Reverse, true},
		{"join(complement(5..9),complement(1..3))", 0, 9, feat.Reverse, true},
		{"join(4000..4361,1..200)", 0, 4361, feat.Forward, true},
		{"join(1..5,complement(10..20))", 0, 20, feat.NotOriented, true},
		{"order(1..2,8..9)", 0, 9, feat.Forward, true},
		{"102.110", 101, 110, feat.Forward, true},
		{"123^124", 123, 123, feat.Forward, true},
		{"J00194.1:100..202", 0, 0, feat.NotOriented, false},
		{"garbage", 0, 0, feat.NotOriented, false},
		{"", 0, 0, feat.NotOriented, false},
	}
	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			start, end, strand, ok := parseLocation(tt.loc)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if start != tt.start || end != tt.end || strand != tt.strand {
				t.Fatalf("got [%d,%d) strand %d, want [%d,%d) strand %d", start, end, strand, tt.start, tt.end, tt.strand)
			}
		})
	}
}

func TestParseFeaturesFixture(t *testing.T) {
	rec, err := ReadFile("testdata/pTEST.gb")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var types []string
	for _, f := range rec.Features {
		types = append(types, f.Type)
	}
	wantTypes := []string{"source", "promoter", "gene", "CDS", "rep_origin", "polyA_signal"}
	if !reflect.DeepEqual(types, wantTypes) {
		t.Fatalf("feature order = %v, want %v", types, wantTypes)
	}
	cds := rec.Features[3]
	if cds.Location != "complement(join(30..60,70..90))" {
		t.Fatalf("location continuation not joined: %q", cds.Location)
	}
	if cds.Start != 29 || cds.End != 90 || cds.Strand != feat.Reverse {
		t.Fatalf("unexpected CDS span %+v", cds)
	}
	wantQuals := map[string][]string{
		"gene":        {"kanR"},
		"label":       {"KanR"},
		"note":        {"confers resistance to kanamycin", "second note"},
		"translation": {"MSHIQRETSCRPRLNSNMDA"},
	}
	if !reflect.DeepEqual(cds.Qualifiers, wantQuals) {
		t.Fatalf("qualifiers = %#v, want %#v", cds.Qualifiers, wantQuals)
	}
	if v, ok := rec.Features[1].Qualifier("label"); !ok || v != "lac promoter" {
		t.Fatalf("unquoted qualifier = %q %v", v, ok)
	}
	if rec.Features[5].Qualifiers != nil {
		t.Fatalf("feature without qualifiers should have none, got %v", rec.Features[5].Qualifiers)
	}
	if _, ok := rec.Features[5].Qualifier("label"); ok {
		t.Fatalf("missing qualifier reported present")
	}
}

func TestParseFeaturesEdgeCases(t *testing.T) {
	raw := "" +
		"                     /orphan=\"no feature yet\"\n" +
		"     misc_feature    bogus\n" +
		"                     /label=dropped\n" +
		"     misc_binding    3..4\n" +
		"                     /bound_moiety=\"say \"\"hi\"\"\"\n" +
		"                     /pseudo\n" +
		"BASE COUNT     1 a\n" +
		"     gene            7..8\n"
	got := ParseFeatures(raw)
	if len(got) != 1 {
		t.Fatalf("expected one feature, got %+v", got)
	}
	f := got[0]
	if f.Type != "misc_binding" || f.Start != 2 || f.End != 4 {
		t.Fatalf("unexpected feature %+v", f)
	}
	if v, _ := f.Qualifier("bound_moiety"); v != `say "hi"` {
		t.Fatalf("escaped quotes not decoded: %q", v)
	}
	if v, ok := f.Qualifier("pseudo"); !ok || v != "" {
		t.Fatalf("bare qualifier = %q %v", v, ok)
	}
}
