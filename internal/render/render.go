// Package render draws linear and circular plasmid maps from GenBank files
// and writes them as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"plasmap/internal/blob"
	"plasmap/internal/core"
	"plasmap/internal/genbank"
	"plasmap/internal/graphic"
)

// Defaults for the rendered images.
const (
	DefaultDPI          = 300
	DefaultLabelRadius  = 1.35
	DefaultLinearWidth  = 12.0
	DefaultCircularSize = 8.0
	// ArtifactPrefix is the blob key prefix for published maps.
	ArtifactPrefix = "maps/"
)

const (
	linearSuffix   = "_lineaire.png"
	circularSuffix = "_circulaire.png"
)

// formatPosition groups thousands, e.g. 12,500.
func formatPosition(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// Maps holds the paths of the two images produced for one file.
type Maps struct {
	Source   string `json:"source"`
	Linear   string `json:"linear"`
	Circular string `json:"circular"`
}

type options struct {
	dpi          float64
	labelRadius  float64
	linearWidth  float64
	circularSize float64
	classifier   graphic.Classifier
	store        blob.Store
	logger       core.Logger
	metrics      core.MetricsRecorder
}

// Option configures a Renderer.
type Option func(*options)

// WithDPI sets the pixel density. Image sizes are fixed in inches.
func WithDPI(dpi float64) Option {
	return func(o *options) {
		if dpi > 0 {
			o.dpi = dpi
		}
	}
}

// WithLabelRadius sets the circular label radius as a factor of the ring radius.
func WithLabelRadius(f float64) Option {
	return func(o *options) {
		if f > 0 {
			o.labelRadius = f
		}
	}
}

// WithClassifier replaces the default feature classifier.
func WithClassifier(c graphic.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithArtifactStore also publishes every image to s under ArtifactPrefix.
func WithArtifactStore(s blob.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records one "render_file" observation per file.
func WithMetrics(m core.MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// Renderer produces map images. It holds no per-call state and is safe for
// concurrent use.
type Renderer struct {
	opts options
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	o := options{
		dpi:          DefaultDPI,
		labelRadius:  DefaultLabelRadius,
		linearWidth:  DefaultLinearWidth,
		circularSize: DefaultCircularSize,
		classifier:   graphic.NewClassifier(nil),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Renderer{opts: o}
}

// DisplayName strips a single leading "p" from a plasmid name.
func DisplayName(name string) string {
	return strings.TrimPrefix(name, "p")
}

// RenderFile reads a single-record GenBank file and writes
// <display>_lineaire.png and <name>_circulaire.png into outDir, creating it
// when needed.
func (r *Renderer) RenderFile(ctx context.Context, path, outDir string) (Maps, error) {
	started := time.Now()
	maps, err := r.renderFile(ctx, path, outDir)
	if r.opts.metrics != nil {
		r.opts.metrics.Observe(ctx, "render_file", err == nil, time.Since(started))
	}
	if err != nil {
		r.opts.logger.Error("render failed", "path", path, "error", err)
		return Maps{}, err
	}
	r.opts.logger.Info("rendered maps", "path", path, "linear", maps.Linear, "circular", maps.Circular,
		"duration", time.Since(started))
	return maps, nil
}

func (r *Renderer) renderFile(ctx context.Context, path, outDir string) (Maps, error) {
	if err := ctx.Err(); err != nil {
		return Maps{}, err
	}
	rec, err := genbank.ReadSingleFile(path)
	if err != nil {
		return Maps{}, err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return Maps{}, fmt.Errorf("create output dir: %w", err)
	}
	name := genbank.NameFromPath(path)
	display := DisplayName(name)

	linear := graphic.NewMap(rec, "Carte linéaire du plasmide "+display, r.opts.classifier)
	linearPath := filepath.Join(outDir, display+linearSuffix)
	dc, err := r.drawLinear(linear)
	if err != nil {
		return Maps{}, err
	}
	if err := r.write(ctx, dc.EncodePNG, linearPath, name); err != nil {
		return Maps{}, err
	}

	circular := graphic.NewMap(rec, "Carte circulaire du plasmide "+name, r.opts.classifier)
	circularPath := filepath.Join(outDir, name+circularSuffix)
	dc, err = r.drawCircular(circular)
	if err != nil {
		return Maps{}, err
	}
	if err := r.write(ctx, dc.EncodePNG, circularPath, name); err != nil {
		return Maps{}, err
	}
	return Maps{Source: path, Linear: linearPath, Circular: circularPath}, nil
}

func (r *Renderer) write(ctx context.Context, encode func(w io.Writer) error, path, source string) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if r.opts.store == nil {
		return nil
	}
	key := ArtifactPrefix + filepath.Base(path)
	if _, err := r.opts.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	_, err := r.opts.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"source": source},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// RenderAll renders paths with at most jobs files in flight (GOMAXPROCS when
// jobs <= 0). Results keep the order of paths. The first failure cancels
// the remaining work.
func (r *Renderer) RenderAll(ctx context.Context, paths []string, outDir string, jobs int) ([]Maps, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	out := make([]Maps, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			m, err := r.RenderFile(ctx, p, outDir)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
