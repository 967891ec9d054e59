package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func statusOf(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

var expvarSeq atomic.Uint64

type opTotals struct {
	durationMS float64
	counts     map[string]int64
}

// ExpvarMetricsRecorder keeps per-operation totals and publishes them as an
// expvar variable.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*opTotals
}

// ExpvarMetricsSnapshot is a point-in-time copy of the recorder.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated plasmap_metrics_N name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("plasmap_metrics_%d", expvarSeq.Add(1))
	}
	r := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*opTotals)}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64, len(r.ops)),
		Results:     make(map[string]map[string]int64, len(r.ops)),
		RecordedAt:  time.Now().UTC(),
	}
	for op, t := range r.ops {
		snap.DurationsMS[op] = t.durationMS
		counts := make(map[string]int64, len(t.counts))
		for k, v := range t.counts {
			counts[k] = v
		}
		snap.Results[op] = counts
	}
	return snap
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.ops[operation]
	if !ok {
		t = &opTotals{counts: make(map[string]int64, 2)}
		r.ops[operation] = t
	}
	t.durationMS += float64(duration) / float64(time.Millisecond)
	t.counts[statusOf(success)]++
}

// PrometheusMetricsRecorder exports operation latency and outcome counts as
// Prometheus collectors.
type PrometheusMetricsRecorder struct {
	latency *prometheus.HistogramVec
	results *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the recorder's collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plasmap",
			Name:      "operation_duration_seconds",
			Help:      "Duration of plasmap operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plasmap",
			Name:      "operations_total",
			Help:      "Completed plasmap operations by outcome.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{r.latency, r.results} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, statusOf(success)).Inc()
}

// MultiMetrics fans observations out to several recorders.
func MultiMetrics(recorders ...MetricsRecorder) MetricsRecorder {
	out := make(multiMetrics, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiMetrics []MetricsRecorder

func (m multiMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes finished spans as JSON lines and keeps them in memory.
type JSONTracer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	entries []JSONTraceEntry
}

// NewJSONTracer writes spans to w. A nil writer only retains them.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns the spans finished so far.
func (t *JSONTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

func (t *JSONTracer) finish(e JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	if t.enc != nil {
		_ = t.enc.Encode(e)
	}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	ended := time.Now().UTC()
	e := JSONTraceEntry{
		Operation:  s.operation,
		Status:     statusOf(err == nil),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.tracer.finish(e)
}
