package filament

import (
	"sync"
	"sync/atomic"
	"time"
)

// Effect is a reactive callback that re-runs when any signal or computed
// value it read during its last run changes. The body may return a Cleanup,
// which runs before the next invocation and on disposal.
//
// Effects run synchronously on the goroutine that flushes the notification;
// the scheduler introduces no concurrency of its own.
type Effect struct {
	rt *Runtime
	id uint64

	fn func() Cleanup

	// cleanupMu guards cleanup so a Dispose racing a flush can neither
	// tear the field nor run the same cleanup twice.
	cleanupMu sync.Mutex
	cleanup   Cleanup

	priority EffectPriority

	sourcesMu sync.Mutex
	sources   []source

	owner *Owner

	// pending is set while the effect sits in the scheduler queue. CAS
	// guarantees one queue entry per notification burst.
	pending atomic.Bool

	disposed atomic.Bool
}

// EffectOption configures an Effect at creation.
type EffectOption interface {
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// WithPriority sets the effect's drain priority. Defaults to
// PriorityNormal; values above PriorityCritical are clamped.
func WithPriority(p EffectPriority) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		if p > PriorityCritical {
			p = PriorityCritical
		}
		e.priority = p
	})
}

// NewEffect creates an effect in the default runtime and runs it once
// immediately, establishing its initial dependency set.
func NewEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	return NewEffectIn(Default(), fn, opts...)
}

// NewEffectIn creates an effect in an explicit runtime. If an owner is
// current, the effect is disposed with it.
func NewEffectIn(rt *Runtime, fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		rt:       rt,
		id:       nextID(),
		fn:       fn,
		priority: PriorityNormal,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if o := currentOwner(); o != nil {
		e.owner = o
		o.registerEffect(e)
	}

	e.run()
	return e
}

// MarkDirty schedules the effect for the current flush. Outside a batch or
// flush, the effect runs before MarkDirty returns.
// Implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	if !e.pending.CompareAndSwap(false, true) {
		return
	}
	e.rt.sched.schedule(e)

	ctx := currentContext()
	ctx.noteDrain(e.rt)
	if ctx.batchDepth == 0 && !ctx.flushing && !ctx.draining {
		drainPending(ctx)
	}
}

// ID returns the effect's unique identifier. Implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Priority returns the effect's drain priority.
func (e *Effect) Priority() EffectPriority {
	return e.priority
}

// run executes the effect body: previous cleanup first, then the body with
// dependency tracking, then the returned cleanup is stored for next time.
// If the body panics, the previous dependency set stays committed and no
// new cleanup is stored.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}
	e.pending.Store(false)

	e.cleanupMu.Lock()
	cleanup := e.cleanup
	e.cleanup = nil
	e.cleanupMu.Unlock()
	if cleanup != nil {
		cleanup()
	}

	frame := beginEvaluation(e)
	committed := false
	defer func() {
		if !committed {
			abortEvaluation(frame)
		}
	}()

	start := time.Now()
	next := e.fn()

	deps := finishEvaluation(frame)
	committed = true

	e.commitSources(deps)

	// If Dispose won the race while the body ran, it already took the old
	// cleanup; the new one would never be taken, so run it now.
	e.cleanupMu.Lock()
	if e.disposed.Load() {
		e.cleanupMu.Unlock()
		if next != nil {
			next()
		}
	} else {
		e.cleanup = next
		e.cleanupMu.Unlock()
	}

	e.rt.effectRuns.Add(1)
	e.rt.instr.EffectRan(time.Since(start))
}

// commitSources replaces the effect's subscriptions with the sources read
// by the run that just completed.
func (e *Effect) commitSources(deps []source) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		s.detach(e)
	}
	e.sources = nil

	attached := make([]source, 0, len(deps))
	for _, s := range deps {
		if err := s.attach(e); err != nil {
			for _, a := range attached {
				a.detach(e)
			}
			panic(err)
		}
		attached = append(attached, s)
	}
	e.sources = attached
}

// Dispose runs the stored cleanup and unsubscribes from all sources.
// Idempotent; owner disposal calls it automatically.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}

	e.cleanupMu.Lock()
	cleanup := e.cleanup
	e.cleanup = nil
	e.cleanupMu.Unlock()
	if cleanup != nil {
		cleanup()
	}

	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	for _, s := range e.sources {
		s.detach(e)
	}
	e.sources = nil
}

// OnCleanup registers fn to run when the current owner is disposed. Outside
// any owner scope it is a no-op.
func OnCleanup(fn func()) {
	if o := currentOwner(); o != nil {
		o.OnCleanup(fn)
	}
}
