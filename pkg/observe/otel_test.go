package observe

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingTracer captures span names; span bodies come from the noop
// implementation.
type recordingTracer struct {
	embedded.Tracer

	mu    sync.Mutex
	names []string
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	return noop.NewTracerProvider().Tracer("test").Start(ctx, name, opts...)
}

func (r *recordingTracer) spanNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type recordingProvider struct {
	embedded.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestTracingSpanNames(t *testing.T) {
	provider := newRecordingProvider()
	tr := NewTracing(WithTracerProvider(provider))

	tr.BatchFlushed(2, time.Millisecond)
	tr.EffectRan(time.Millisecond)
	tr.ComputedRecomputed(time.Millisecond)
	tr.LockTimedOut("computed compute function")

	want := []string{"filament.flush", "filament.effect", "filament.recompute", "filament.lock_timeout"}
	got := provider.tracer.spanNames()
	if len(got) != len(want) {
		t.Fatalf("expected spans %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected spans %v, got %v", want, got)
		}
	}
}

func TestTracingMinDurationFilter(t *testing.T) {
	provider := newRecordingProvider()
	tr := NewTracing(
		WithTracerProvider(provider),
		WithMinDuration(10*time.Millisecond),
	)

	tr.EffectRan(time.Millisecond)
	tr.BatchFlushed(1, time.Millisecond)
	if len(provider.tracer.spanNames()) != 0 {
		t.Errorf("spans recorded below threshold: %v", provider.tracer.spanNames())
	}

	tr.EffectRan(20 * time.Millisecond)
	if got := provider.tracer.spanNames(); len(got) != 1 || got[0] != "filament.effect" {
		t.Errorf("expected one effect span, got %v", got)
	}

	// Timeouts bypass the threshold.
	tr.LockTimedOut("signal store")
	if got := provider.tracer.spanNames(); len(got) != 2 {
		t.Errorf("lock timeout span missing, got %v", got)
	}
}

func TestTracingSignalHooksAreCheap(t *testing.T) {
	provider := newRecordingProvider()
	tr := NewTracing(WithTracerProvider(provider))

	tr.SignalCreated()
	tr.SignalWritten()
	tr.SignalReleased()

	if len(provider.tracer.spanNames()) != 0 {
		t.Errorf("signal lifecycle hooks emitted spans: %v", provider.tracer.spanNames())
	}
}
