package importer

import (
	"io"

	"github.com/fatih/color"
	"github.com/gedex/inflector"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func count(p *message.Printer, n int, noun string) string {
	if n != 1 {
		noun = inflector.Pluralize(noun)
	}
	return p.Sprintf("%d %s", n, noun)
}

// Print writes a human readable summary. Colors are used unless noColor is
// set.
func (r Report) Print(w io.Writer, noColor bool) {
	p := message.NewPrinter(language.English)
	ok := color.New(color.FgGreen)
	skip := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)
	if noColor {
		for _, c := range []*color.Color{ok, skip, bad} {
			c.DisableColor()
		}
	}

	if r.Cleared > 0 {
		_, _ = skip.Fprintf(w, "cleared %s\n", count(p, r.Cleared, "plasmid"))
	}
	for _, e := range r.Loaded {
		_, _ = ok.Fprintf(w, "  + %s\n", e.Key)
	}
	for _, f := range r.Failed {
		_, _ = bad.Fprintf(w, "  ! %s: %v\n", f.Path, f.Err)
	}
	_, _ = ok.Fprintf(w, "loaded %s", count(p, len(r.Loaded), "plasmid"))
	_, _ = io.WriteString(w, ", ")
	_, _ = skip.Fprintf(w, "%s already present", count(p, len(r.Skipped), "plasmid"))
	_, _ = io.WriteString(w, ", ")
	_, _ = bad.Fprintf(w, "%s\n", count(p, len(r.Failed), "failure"))
}
