package genbank

import (
	"io"

	"github.com/biogo/biogo/io/seqio/fasta"
)

// WriteFASTA writes the record sequence as a single FASTA entry wrapped at
// width letters per line.
func WriteFASTA(w io.Writer, rec Record, width int) error {
	if width <= 0 {
		width = 60
	}
	_, err := fasta.NewWriter(w, width).Write(rec.Seq())
	return err
}
