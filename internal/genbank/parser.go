package genbank

import (
	"regexp"
	"strconv"
	"strings"
)

// state is the position of the extractor within a record.
type state int

const (
	stateScanning state = iota
	stateDefinition
	stateFeatures
	stateOrigin
	stateDone
)

func (s state) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateDefinition:
		return "definition"
	case stateFeatures:
		return "features"
	case stateOrigin:
		return "origin"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// stepFunc handles one line in a given state. It returns the next state and
// whether the line was consumed. An unconsumed line is dispatched again in
// the next state.
type stepFunc func(b *builder, l line) (state, bool)

var transitions = map[state]stepFunc{
	stateScanning:   scanKeyword,
	stateDefinition: continueDefinition,
	stateFeatures:   collectFeatures,
	stateOrigin:     collectOrigin,
	stateDone:       ignoreLine,
}

var (
	locusLengthRe  = regexp.MustCompile(`(\d+)\s+bp`)
	locusMolTypeRe = regexp.MustCompile(`\d+\s+bp\s+(\S+)`)
)

type builder struct {
	rec        Record
	definition []string
	features   []string
	sequence   strings.Builder
}

// ParseLines extracts a Record from the lines of one GenBank entry. Lines
// must not carry trailing newlines. Lines after the first "//" terminator
// are ignored. The returned record has no Name; see NameFromPath.
func ParseLines(lines []string) Record {
	b := &builder{}
	st := stateScanning
	for i := 0; i < len(lines); {
		l := classify(lines[i])
		next, consumed := transitions[st](b, l)
		if consumed || next == st {
			i++
		}
		st = next
	}
	return b.finish()
}

func scanKeyword(b *builder, l line) (state, bool) {
	switch l.kind {
	case kindTerminator:
		return stateDone, true
	case kindContinuation:
		if l.token == "ORGANISM" {
			b.rec.Organism = l.rest
		}
		return stateScanning, true
	case kindKeyword:
	default:
		return stateScanning, true
	}
	switch l.token {
	case "LOCUS":
		if m := locusLengthRe.FindStringSubmatch(l.text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				b.rec.Length = &n
			}
		}
		if m := locusMolTypeRe.FindStringSubmatch(l.text); m != nil {
			mol := m[1]
			b.rec.MolType = &mol
		}
	case "DEFINITION":
		b.definition = b.definition[:0]
		if l.rest != "" {
			b.definition = append(b.definition, l.rest)
		}
		return stateDefinition, true
	case "ACCESSION":
		b.rec.Accession = l.rest
	case "VERSION":
		b.rec.Version = l.rest
	case "KEYWORDS":
		b.rec.Keywords = strings.TrimSuffix(l.rest, ".")
	case "FEATURES":
		return stateFeatures, true
	case "ORIGIN":
		return stateOrigin, true
	}
	return stateScanning, true
}

func continueDefinition(b *builder, l line) (state, bool) {
	if l.kind != kindContinuation || isTopLevelKeyword(l.token) {
		return stateScanning, false
	}
	if text := strings.TrimSpace(l.text); text != "" {
		b.definition = append(b.definition, text)
	}
	return stateDefinition, true
}

func collectFeatures(b *builder, l line) (state, bool) {
	switch {
	case strings.HasPrefix(l.text, "ORIGIN"):
		return stateOrigin, true
	case l.kind == kindTerminator:
		return stateDone, true
	}
	b.features = append(b.features, strings.TrimRight(l.text, " \t\r"))
	return stateFeatures, true
}

func collectOrigin(b *builder, l line) (state, bool) {
	if l.kind == kindTerminator {
		return stateDone, true
	}
	b.sequence.WriteString(CleanSequence(l.text))
	return stateOrigin, true
}

func ignoreLine(*builder, line) (state, bool) {
	return stateDone, true
}

func (b *builder) finish() Record {
	rec := b.rec
	rec.Definition = strings.Join(b.definition, " ")
	rec.FeaturesRaw = strings.Join(b.features, "\n")
	rec.Sequence = b.sequence.String()
	if rec.Sequence != "" {
		n := len(rec.Sequence)
		rec.Length = &n
	}
	rec.GCContent = GCContent(rec.Sequence)
	rec.Features = ParseFeatures(rec.FeaturesRaw)
	return rec
}
