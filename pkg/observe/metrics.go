package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "filament").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations, in seconds.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "filament",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics exports runtime counters and latency histograms to Prometheus.
// It implements filament.Instrumentation.
type Metrics struct {
	signalsCreated    prometheus.Counter
	signalsWritten    prometheus.Counter
	signalsReleased   prometheus.Counter
	batchFlushes      prometheus.Counter
	batchSignals      prometheus.Histogram
	flushDuration     prometheus.Histogram
	effectDuration    prometheus.Histogram
	recomputeDuration prometheus.Histogram
	lockTimeouts      *prometheus.CounterVec
}

// NewMetrics creates Prometheus instrumentation. Registering two Metrics
// with the same namespace on the same registry panics; use WithRegistry or
// WithSubsystem to separate runtimes.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		signalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signals_created_total",
			Help:        "Total number of signals created",
			ConstLabels: config.ConstLabels,
		}),

		signalsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signals_written_total",
			Help:        "Total number of signal writes",
			ConstLabels: config.ConstLabels,
		}),

		signalsReleased: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signals_released_total",
			Help:        "Total number of signals whose storage was reclaimed",
			ConstLabels: config.ConstLabels,
		}),

		batchFlushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_flushes_total",
			Help:        "Total number of notification flushes",
			ConstLabels: config.ConstLabels,
		}),

		batchSignals: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_signals",
			Help:        "Distinct signals notified per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Notification flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect body duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Computed value recompute duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		lockTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lock_timeouts_total",
			Help:        "Total number of bounded lock acquisitions that timed out",
			ConstLabels: config.ConstLabels,
		}, []string{"resource"}),
	}
}

// SignalCreated implements filament.Instrumentation.
func (m *Metrics) SignalCreated() {
	m.signalsCreated.Inc()
}

// SignalWritten implements filament.Instrumentation.
func (m *Metrics) SignalWritten() {
	m.signalsWritten.Inc()
}

// SignalReleased implements filament.Instrumentation.
func (m *Metrics) SignalReleased() {
	m.signalsReleased.Inc()
}

// BatchFlushed implements filament.Instrumentation.
func (m *Metrics) BatchFlushed(signals int, elapsed time.Duration) {
	m.batchFlushes.Inc()
	m.batchSignals.Observe(float64(signals))
	m.flushDuration.Observe(elapsed.Seconds())
}

// EffectRan implements filament.Instrumentation.
func (m *Metrics) EffectRan(elapsed time.Duration) {
	m.effectDuration.Observe(elapsed.Seconds())
}

// ComputedRecomputed implements filament.Instrumentation.
func (m *Metrics) ComputedRecomputed(elapsed time.Duration) {
	m.recomputeDuration.Observe(elapsed.Seconds())
}

// LockTimedOut implements filament.Instrumentation.
func (m *Metrics) LockTimedOut(resource string) {
	m.lockTimeouts.WithLabelValues(resource).Inc()
}
