// Package importer loads a directory tree of GenBank files into the plasmid
// store. Files directly under the root go to the default namespace; files
// in a subdirectory go to the namespace named after its first component.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"plasmap/internal/core"
	"plasmap/pkg/domain"
)

// Materializer is the subset of core.Service the importer drives.
type Materializer interface {
	ImportGenBank(ctx context.Context, path, namespace string) (domain.Plasmid, bool, error)
	ClearPlasmids(ctx context.Context, namespace string) (int, error)
}

var _ Materializer = (*core.Service)(nil)

// Extensions recognised as GenBank files, optionally followed by .gz.
var Extensions = []string{".gb", ".gbk", ".genbank"}

// Entry is one imported file.
type Entry struct {
	Path string     `json:"path"`
	Key  domain.Key `json:"key"`
}

// Failure is a file that could not be imported.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Report summarises a run.
type Report struct {
	Cleared int       `json:"cleared"`
	Loaded  []Entry   `json:"loaded"`
	Skipped []Entry   `json:"skipped"`
	Failed  []Failure `json:"failed"`
}

// Err joins the failures, nil when every file imported.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return errors.Join(errs...)
}

// Importer walks data directories.
type Importer struct {
	svc       Materializer
	logger    core.Logger
	clear     bool
	namespace string
}

// Option configures an Importer.
type Option func(*Importer)

// WithClear deletes every stored plasmid before loading.
func WithClear(clear bool) Option {
	return func(i *Importer) { i.clear = clear }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithDefaultNamespace sets the namespace of files directly under the root.
func WithDefaultNamespace(ns string) Option {
	return func(i *Importer) {
		if ns != "" {
			i.namespace = ns
		}
	}
}

// New returns an Importer feeding svc.
func New(svc Materializer, opts ...Option) *Importer {
	i := &Importer{svc: svc, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), namespace: domain.DefaultNamespace}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IsGenBankFile reports whether name carries a GenBank extension.
func IsGenBankFile(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Files lists the GenBank files under root in lexical order, skipping
// hidden directories.
func Files(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsGenBankFile(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// NamespaceFor derives the namespace of path relative to root.
func (i *Importer) NamespaceFor(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return i.namespace
	}
	dir, _, found := strings.Cut(filepath.ToSlash(rel), "/")
	if !found {
		return i.namespace
	}
	return dir
}

// Run imports every GenBank file under dataDir. A failing file is recorded
// in the report and the run continues; the returned error covers only
// problems with the directory itself, the clear step and cancellation.
func (i *Importer) Run(ctx context.Context, dataDir string) (Report, error) {
	var rep Report
	info, err := os.Stat(dataDir)
	if err != nil {
		return rep, fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("data dir %s is not a directory", dataDir)
	}
	if i.clear {
		n, err := i.svc.ClearPlasmids(ctx, "")
		if err != nil {
			return rep, fmt.Errorf("clear: %w", err)
		}
		rep.Cleared = n
		i.logger.Info("cleared plasmids", "count", n)
	}
	files, err := Files(dataDir)
	if err != nil {
		return rep, fmt.Errorf("walk %s: %w", dataDir, err)
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ns := i.NamespaceFor(dataDir, path)
		p, created, err := i.svc.ImportGenBank(ctx, path, ns)
		switch {
		case err != nil:
			rep.Failed = append(rep.Failed, Failure{Path: path, Error: err.Error(), Err: err})
			i.logger.Warn("import failed", "path", path, "namespace", ns, "error", err)
		case created:
			rep.Loaded = append(rep.Loaded, Entry{Path: path, Key: p.Key()})
		default:
			rep.Skipped = append(rep.Skipped, Entry{Path: path, Key: p.Key()})
		}
	}
	i.logger.Info("import finished", "loaded", len(rep.Loaded), "skipped", len(rep.Skipped), "failed", len(rep.Failed))
	return rep, nil
}
