package genbank

import (
	"strconv"
	"strings"

	"github.com/biogo/biogo/feat"
)

// qualifierColumn is where qualifiers and location continuations start in a
// well-formed feature table. Anything indented less opens a new feature.
const qualifierColumn = 21

// unspacedQualifiers are joined across lines without a separator.
var unspacedQualifiers = map[string]bool{
	"translation":   true,
	"transcription": true,
	"peptide":       true,
	"anticodon":     true,
}

type featureBuilder struct {
	typ      string
	location strings.Builder
	quals    map[string][]string
	qual     string
	value    strings.Builder
	inQual   bool
}

func (fb *featureBuilder) flushQualifier() {
	if !fb.inQual {
		return
	}
	v := strings.TrimSpace(fb.value.String())
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	} else {
		v = strings.Trim(v, `"`)
	}
	v = strings.ReplaceAll(v, `""`, `"`)
	if fb.quals == nil {
		fb.quals = make(map[string][]string)
	}
	fb.quals[fb.qual] = append(fb.quals[fb.qual], v)
	fb.qual = ""
	fb.value.Reset()
	fb.inQual = false
}

func (fb *featureBuilder) build() (Feature, bool) {
	fb.flushQualifier()
	loc := fb.location.String()
	start, end, strand, ok := parseLocation(loc)
	if !ok {
		return Feature{}, false
	}
	return Feature{
		Type:       fb.typ,
		Location:   loc,
		Start:      start,
		End:        end,
		Strand:     strand,
		Qualifiers: fb.quals,
	}, true
}

// ParseFeatures parses the text of a FEATURES block into features, keeping
// the order in which they appear. Entries whose location cannot be resolved
// to at least one span are dropped.
func ParseFeatures(raw string) []Feature {
	var (
		out []Feature
		cur *featureBuilder
	)
	flush := func() {
		if cur == nil {
			return
		}
		if f, ok := cur.build(); ok {
			out = append(out, f)
		}
		cur = nil
	}
	for _, text := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		indent := len(text) - len(strings.TrimLeft(text, " \t"))
		switch {
		case indent == 0:
			// a column-0 line is a new section, not part of the table
			flush()
			return out
		case strings.HasPrefix(trimmed, "/"):
			if cur == nil {
				continue
			}
			cur.flushQualifier()
			name, value, _ := strings.Cut(trimmed[1:], "=")
			cur.qual = name
			cur.value.WriteString(value)
			cur.inQual = true
		case indent < qualifierColumn:
			flush()
			fields := strings.Fields(trimmed)
			cur = &featureBuilder{typ: fields[0]}
			cur.location.WriteString(strings.Join(fields[1:], ""))
		case cur == nil:
		case cur.inQual:
			if cur.value.Len() > 0 && !unspacedQualifiers[cur.qual] {
				cur.value.WriteByte(' ')
			}
			cur.value.WriteString(trimmed)
		default:
			cur.location.WriteString(trimmed)
		}
	}
	flush()
	return out
}

type span struct {
	lo, hi     int // 1-based inclusive
	complement bool
}

// parseLocation resolves a GenBank location to the 0-based half-open
// interval covering all of its spans.
func parseLocation(loc string) (start, end int, strand feat.Orientation, ok bool) {
	var spans []span
	collectSpans(strings.ReplaceAll(loc, " ", ""), false, &spans)
	if len(spans) == 0 {
		return 0, 0, feat.NotOriented, false
	}
	lo, hi := spans[0].lo, spans[0].hi
	complemented := 0
	for _, s := range spans {
		if s.lo < lo {
			lo = s.lo
		}
		if s.hi > hi {
			hi = s.hi
		}
		if s.complement {
			complemented++
		}
	}
	switch complemented {
	case 0:
		strand = feat.Forward
	case len(spans):
		strand = feat.Reverse
	default:
		strand = feat.NotOriented
	}
	return lo - 1, hi, strand, true
}

func collectSpans(expr string, complement bool, out *[]span) {
	if expr == "" {
		return
	}
	if name, inner, ok := operator(expr); ok {
		if name == "complement" {
			collectSpans(inner, !complement, out)
			return
		}
		for _, part := range splitTopLevel(inner) {
			collectSpans(part, complement, out)
		}
		return
	}
	if s, ok := parseSpan(expr); ok {
		s.complement = complement
		*out = append(*out, s)
	}
}

// operator splits "name(inner)" expressions such as join(...) or complement(...).
func operator(expr string) (name, inner string, ok bool) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	switch name = expr[:open]; name {
	case "complement", "join", "order", "bond":
		return name, expr[open+1 : len(expr)-1], true
	}
	return "", "", false
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func parseSpan(s string) (span, bool) {
	if strings.Contains(s, ":") {
		return span{}, false
	}
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	if a, b, found := strings.Cut(s, ".."); found {
		return spanOf(a, b)
	}
	if a, _, found := strings.Cut(s, "^"); found {
		n, err := strconv.Atoi(a)
		if err != nil {
			return span{}, false
		}
		// zero-length site between a and a+1
		return span{lo: n + 1, hi: n}, true
	}
	if a, b, found := strings.Cut(s, "."); found {
		return spanOf(a, b)
	}
	return spanOf(s, s)
}

func spanOf(a, b string) (span, bool) {
	lo, err := strconv.Atoi(a)
	if err != nil {
		return span{}, false
	}
	hi, err := strconv.Atoi(b)
	if err != nil {
		return span{}, false
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return span{lo: lo, hi: hi}, true
}
