package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for filament runtimes.
const defaultTracerName = "filament"

// TracingConfig configures the OpenTelemetry instrumentation.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "filament").
	TracerName string

	// TracerProvider supplies the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// MinDuration skips spans for operations shorter than this. Flushes,
	// effects, and recomputes are frequent and usually sub-millisecond;
	// a threshold keeps trace volume sane. Zero records everything.
	MinDuration time.Duration
}

// TracingOption configures the OpenTelemetry instrumentation.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithMinDuration sets the minimum duration an operation must take before a
// span is recorded for it.
func WithMinDuration(d time.Duration) TracingOption {
	return func(c *TracingConfig) {
		c.MinDuration = d
	}
}

// defaultTracingConfig returns the default tracing configuration.
func defaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName:  defaultTracerName,
		MinDuration: 0,
	}
}

// Tracing records flush, effect, and recompute spans through OpenTelemetry.
// It implements filament.Instrumentation.
//
// The runtime reports durations after the fact, so spans are back-dated:
// a span's start timestamp is its end minus the reported duration.
type Tracing struct {
	tracer      trace.Tracer
	minDuration time.Duration
}

// NewTracing creates OpenTelemetry instrumentation.
func NewTracing(opts ...TracingOption) *Tracing {
	config := defaultTracingConfig()
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return &Tracing{
		tracer:      tracer,
		minDuration: config.MinDuration,
	}
}

// record emits one back-dated span covering the reported duration.
func (t *Tracing) record(name string, elapsed time.Duration, attrs ...attribute.KeyValue) {
	if elapsed < t.minDuration {
		return
	}
	end := time.Now()
	_, span := t.tracer.Start(context.Background(), name,
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}

// SignalCreated implements filament.Instrumentation. Signal lifecycle events
// are too frequent for per-event spans; only the aggregate operations below
// are traced.
func (t *Tracing) SignalCreated() {}

// SignalWritten implements filament.Instrumentation.
func (t *Tracing) SignalWritten() {}

// SignalReleased implements filament.Instrumentation.
func (t *Tracing) SignalReleased() {}

// BatchFlushed implements filament.Instrumentation.
func (t *Tracing) BatchFlushed(signals int, elapsed time.Duration) {
	t.record("filament.flush", elapsed, attribute.Int("filament.signals", signals))
}

// EffectRan implements filament.Instrumentation.
func (t *Tracing) EffectRan(elapsed time.Duration) {
	t.record("filament.effect", elapsed)
}

// ComputedRecomputed implements filament.Instrumentation.
func (t *Tracing) ComputedRecomputed(elapsed time.Duration) {
	t.record("filament.recompute", elapsed)
}

// LockTimedOut implements filament.Instrumentation. Timeouts are rare and
// always interesting, so they bypass the duration threshold and carry an
// error status.
func (t *Tracing) LockTimedOut(resource string) {
	_, span := t.tracer.Start(context.Background(), "filament.lock_timeout",
		trace.WithAttributes(attribute.String("filament.resource", resource)),
	)
	span.SetStatus(codes.Error, "lock acquisition timed out")
	span.End()
}
