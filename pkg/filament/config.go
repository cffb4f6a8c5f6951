package filament

import (
	"log/slog"
	"time"
)

// Batch nesting bounds. Depth at the warn threshold is diagnosed through the
// logger; depth at the hard limit fails with ExcessiveNestingError.
const (
	batchWarnDepth = 10
	batchMaxDepth  = 20
)

// maxPendingEffects is the high-water mark for the effect queue. Crossing it
// logs a warning; it usually means an effect storm or a batch that never
// exits.
const maxPendingEffects = 10_000

// defaultLockTimeout bounds lock acquisition during computed recomputation.
const defaultLockTimeout = 5 * time.Second

// RuntimeConfig bounds memory and recursion for one Runtime.
type RuntimeConfig struct {
	// MaxSignals is the maximum number of live signals in the value store.
	// Creation beyond it fails with ResourceExhaustedError.
	// Default: 100,000.
	MaxSignals int

	// MaxSubscribersPerSignal caps each cell's subscriber set. Subscription
	// beyond it fails with ResourceExhaustedError.
	// Default: 1,000.
	MaxSubscribersPerSignal int

	// MaxComputedDepth caps the nesting depth of computed evaluations.
	// Default: 100.
	MaxComputedDepth int

	// LockTimeout bounds lock acquisition during computed recomputation.
	// Acquisition beyond it fails with DeadlockError instead of hanging.
	// Default: 5s.
	LockTimeout time.Duration

	// Logger receives this runtime's diagnostics, such as the pending
	// effect queue reaching its high-water mark. Batch-depth warnings go
	// through slog.Default instead: a batch is goroutine-scoped and can
	// span several runtimes, so it belongs to no single config.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultRuntimeConfig returns the default limits.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MaxSignals:              100_000,
		MaxSubscribersPerSignal: 1_000,
		MaxComputedDepth:        100,
		LockTimeout:             defaultLockTimeout,
	}
}

// withDefaults fills in zero fields from the default configuration.
func (c *RuntimeConfig) withDefaults() *RuntimeConfig {
	out := DefaultRuntimeConfig()
	if c == nil {
		out.Logger = slog.Default()
		return out
	}
	if c.MaxSignals > 0 {
		out.MaxSignals = c.MaxSignals
	}
	if c.MaxSubscribersPerSignal > 0 {
		out.MaxSubscribersPerSignal = c.MaxSubscribersPerSignal
	}
	if c.MaxComputedDepth > 0 {
		out.MaxComputedDepth = c.MaxComputedDepth
	}
	if c.LockTimeout > 0 {
		out.LockTimeout = c.LockTimeout
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	} else {
		out.Logger = slog.Default()
	}
	return out
}
