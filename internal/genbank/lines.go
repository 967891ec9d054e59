package genbank

import "strings"

type lineKind int

const (
	kindBlank lineKind = iota
	kindKeyword
	kindContinuation
	kindTerminator
	kindOther
)

// topLevelKeywords are the section keywords the extractor understands.
var topLevelKeywords = map[string]struct{}{
	"LOCUS":      {},
	"DEFINITION": {},
	"ACCESSION":  {},
	"VERSION":    {},
	"KEYWORDS":   {},
	"SOURCE":     {},
	"ORGANISM":   {},
	"FEATURES":   {},
	"ORIGIN":     {},
}

type line struct {
	text  string
	kind  lineKind
	token string // first whitespace-delimited token
	rest  string // text after token and the whitespace run following it
}

func classify(text string) line {
	l := line{text: text}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		l.kind = kindBlank
		return l
	}
	l.token, l.rest = splitToken(trimmed)
	switch {
	case strings.HasPrefix(text, "//"):
		l.kind = kindTerminator
	case text[0] == ' ' || text[0] == '\t':
		l.kind = kindContinuation
	case isUpperKeyword(l.token):
		l.kind = kindKeyword
	default:
		l.kind = kindOther
	}
	return l
}

func splitToken(s string) (string, string) {
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx:], " \t")
}

func isUpperKeyword(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

func isTopLevelKeyword(tok string) bool {
	_, ok := topLevelKeywords[tok]
	return ok
}
