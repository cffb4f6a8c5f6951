package filament

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runtime owns a value store, an effect scheduler, and the limits that bound
// them. It is an explicit, constructible object; Default returns the shared
// process-wide instance for callers that do not need isolation.
type Runtime struct {
	cfg    *RuntimeConfig
	store  *store
	sched  *scheduler
	logger *slog.Logger
	instr  Instrumentation

	signalsCreated  atomic.Uint64
	signalsWritten  atomic.Uint64
	signalsReleased atomic.Uint64
	batchFlushes    atomic.Uint64
	effectRuns      atomic.Uint64
	recomputes      atomic.Uint64
	lockTimeouts    atomic.Uint64
}

// New creates a Runtime with default limits.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates a Runtime. Zero fields of cfg fall back to defaults;
// a nil cfg is equivalent to DefaultRuntimeConfig.
func NewWithConfig(cfg *RuntimeConfig) *Runtime {
	cfg = cfg.withDefaults()
	rt := &Runtime{
		cfg:    cfg,
		store:  newStore(cfg),
		logger: cfg.Logger.With("component", "filament"),
		instr:  nopInstrumentation{},
	}
	rt.sched = newScheduler(rt.logger)
	return rt
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// Default returns the process-wide runtime. NewSignal, NewComputed, and
// NewEffect use it; construct a Runtime explicitly for isolated state or
// custom limits.
func Default() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = New()
	})
	return defaultRuntime
}

// Instrument installs hooks for metrics and tracing. Passing nil restores
// the no-op instrumentation. See the observe package for implementations.
func (rt *Runtime) Instrument(in Instrumentation) {
	if in == nil {
		in = nopInstrumentation{}
	}
	rt.instr = in
}

// Config returns a copy of the runtime's effective configuration.
func (rt *Runtime) Config() RuntimeConfig {
	return *rt.cfg
}

// ReleaseSignal removes a signal's storage. Owner disposal runs cleanups but
// deliberately leaves storage in place, so long-lived applications that
// churn through signals can reclaim entries here. Handles for a released
// signal must not be used again.
func (rt *Runtime) ReleaseSignal(id SignalID) bool {
	ok := rt.store.remove(id)
	if ok {
		rt.signalsReleased.Add(1)
		rt.instr.SignalReleased()
	}
	return ok
}

// notifySignal routes a change notification for id through the current
// goroutine's batch frame. The signal's own notification always lands in
// the flush set before any recursive flush is processed, so a notification
// can never be dropped between enqueue and flush.
func (rt *Runtime) notifySignal(id SignalID) {
	ctx := currentContext()
	ctx.enqueue(flushTarget{rt: rt, id: id})
	if ctx.batchDepth == 0 {
		flushContext(ctx)
	}
}

// flushContext delivers the pending notifications for this goroutine in
// first-seen order, then drains every effect scheduler that received work.
// Writes made by subscribers during the flush extend the same pending list
// and are handled by the same loop.
func flushContext(ctx *trackingContext) {
	if !ctx.flushing && len(ctx.pending) > 0 {
		ctx.flushing = true
		start := time.Now()

		// Typically one runtime per flush; track counts without a map.
		var runtimes []*Runtime
		var counts []int

		for i := 0; i < len(ctx.pending); i++ {
			t := ctx.pending[i]
			for _, sub := range t.rt.store.subscribers(t.id) {
				sub.MarkDirty()
			}

			found := false
			for j, rt := range runtimes {
				if rt == t.rt {
					counts[j]++
					found = true
					break
				}
			}
			if !found {
				runtimes = append(runtimes, t.rt)
				counts = append(counts, 1)
			}
		}

		ctx.pending = ctx.pending[:0]
		clear(ctx.pendingSet)
		ctx.flushing = false

		elapsed := time.Since(start)
		for i, rt := range runtimes {
			rt.batchFlushes.Add(1)
			rt.instr.BatchFlushed(counts[i], elapsed)
		}
	}

	drainPending(ctx)
}

// drainPending runs scheduled effects synchronously on this goroutine until
// every noted scheduler is empty. Effects that write signals trigger nested
// flushes; effects those flushes schedule are picked up by this same loop.
func drainPending(ctx *trackingContext) {
	if ctx.draining {
		return
	}
	ctx.draining = true
	defer func() { ctx.draining = false }()

	for len(ctx.drainList) > 0 {
		rt := ctx.drainList[0]
		ctx.drainList = ctx.drainList[1:]
		for {
			e := rt.sched.pop()
			if e == nil {
				break
			}
			e.run()
		}
	}
}

// Stats is a point-in-time snapshot of runtime counters.
type Stats struct {
	Signals         int    `json:"signals"`
	SignalsCreated  uint64 `json:"signals_created"`
	SignalsWritten  uint64 `json:"signals_written"`
	SignalsReleased uint64 `json:"signals_released"`
	BatchFlushes    uint64 `json:"batch_flushes"`
	EffectRuns      uint64 `json:"effect_runs"`
	Recomputes      uint64 `json:"recomputes"`
	LockTimeouts    uint64 `json:"lock_timeouts"`
	PendingEffects  int    `json:"pending_effects"`
}

// Stats returns a snapshot of the runtime's counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Signals:         rt.store.len(),
		SignalsCreated:  rt.signalsCreated.Load(),
		SignalsWritten:  rt.signalsWritten.Load(),
		SignalsReleased: rt.signalsReleased.Load(),
		BatchFlushes:    rt.batchFlushes.Load(),
		EffectRuns:      rt.effectRuns.Load(),
		Recomputes:      rt.recomputes.Load(),
		LockTimeouts:    rt.lockTimeouts.Load(),
		PendingEffects:  rt.sched.pendingLen(),
	}
}
