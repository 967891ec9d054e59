package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"plasmap/internal/genbank"
	"plasmap/pkg/domain"
)

// Logger is the structured logger the service writes to. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc reads the system
// clock. Times are returned in UTC.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Parser reads a GenBank file into a record. genbank.ReadFile is the default.
type Parser func(path string) (genbank.Record, error)

type serviceOptions struct {
	logger    Logger
	clock     Clock
	metrics   MetricsRecorder
	tracer    Tracer
	parser    Parser
	newID     func() string
	namespace string
	owner     string
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:    noopLogger{},
		clock:     ClockFunc(nil),
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		parser:    genbank.ReadFile,
		newID:     uuid.NewString,
		namespace: domain.DefaultNamespace,
	}
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

// WithLogger sets the service logger. Nil keeps the no-op logger.
func WithLogger(l Logger) ServiceOption {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used for CreatedAt.
func WithClock(c Clock) ServiceOption {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithParser replaces the GenBank parser.
func WithParser(p Parser) ServiceOption {
	return func(o *serviceOptions) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithIDGenerator replaces the uuid generator for new plasmids.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(o *serviceOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithDefaultNamespace sets the namespace used when a caller passes none.
func WithDefaultNamespace(ns string) ServiceOption {
	return func(o *serviceOptions) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithOwner records owner on every plasmid the service creates.
func WithOwner(owner string) ServiceOption {
	return func(o *serviceOptions) { o.owner = owner }
}
