package genbank

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadFile parses the first record of the GenBank file at path and names it
// after the file. Files ending in .gz are decompressed transparently.
func ReadFile(path string) (Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return Record{}, err
	}
	rec := ParseLines(lines)
	rec.Name = NameFromPath(path)
	return rec, nil
}

// ReadSingleFile parses path and fails with ErrRecordCount unless the file
// holds exactly one record.
func ReadSingleFile(path string) (Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return Record{}, err
	}
	chunks := splitRecords(lines)
	if len(chunks) != 1 {
		return Record{}, fmt.Errorf("%w: %s holds %d", ErrRecordCount, path, len(chunks))
	}
	rec := ParseLines(chunks[0])
	rec.Name = NameFromPath(path)
	return rec, nil
}

// Parse reads the first record from r.
func Parse(r io.Reader) (Record, error) {
	lines, err := decodeLines(r)
	if err != nil {
		return Record{}, err
	}
	return ParseLines(lines), nil
}

// ParseAll reads every "//"-terminated record from r.
func ParseAll(r io.Reader) ([]Record, error) {
	lines, err := decodeLines(r)
	if err != nil {
		return nil, err
	}
	chunks := splitRecords(lines)
	out := make([]Record, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, ParseLines(c))
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() { _ = f.Close() }()
	var in io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrIO, path, err)
		}
		defer func() { _ = zr.Close() }()
		in = zr
	}
	lines, err := decodeLines(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// decodeLines reads all of r, honours a byte order mark and splits the text
// into lines without their terminators.
func decodeLines(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w at byte %d", ErrDecode, invalidOffset(text))
	}
	text = bytes.TrimSuffix(text, []byte("\n"))
	if len(text) == 0 {
		return nil, nil
	}
	parts := strings.Split(string(text), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts, nil
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// splitRecords groups lines into records ending at "//". Groups without any
// content are dropped.
func splitRecords(lines []string) [][]string {
	var (
		out     [][]string
		start   int
		content bool
	)
	for i, l := range lines {
		if strings.HasPrefix(l, "//") {
			if content {
				out = append(out, lines[start:i+1])
			}
			start, content = i+1, false
			continue
		}
		if strings.TrimSpace(l) != "" {
			content = true
		}
	}
	if content {
		out = append(out, lines[start:])
	}
	return out
}
