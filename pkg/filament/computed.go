package filament

import (
	"sync"
	"sync/atomic"
	"time"
)

// Computed is a cached, lazily recomputed derived value. Its dependencies
// are discovered by running the compute function with tracking enabled;
// each completed evaluation replaces the dependency set wholesale, so stale
// edges disappear and new edges appear automatically.
//
// A Computed is itself a subscriber of its dependencies and a source for
// downstream evaluations, which is what allows chains of derived values.
type Computed[T any] struct {
	rt *Runtime
	id uint64

	// computeMu guards compute execution. Bounded wait: a cross-goroutine
	// dependency cycle surfaces as a DeadlockError here instead of a hang.
	computeMu *timedMutex
	compute   func() T

	valueMu sync.RWMutex
	value   T

	// dirty is true when the cache is stale. Get clears it with an atomic
	// swap so a notification arriving mid-recompute is neither lost nor
	// double-counted.
	dirty atomic.Bool

	// initialized becomes true when the first evaluation commits a value.
	// Until then a reader that lost the dirty swap must wait on computeMu
	// instead of reading the never-written cache.
	initialized atomic.Bool

	// sourcesMu guards the committed dependency set.
	sourcesMu *timedMutex
	sources   []source

	// subMu guards this computed's own subscriber set.
	subMu *timedMutex
	subs  []Listener
}

// NewComputed creates a computed value in the default runtime. The compute
// function does not run until the first Get.
func NewComputed[T any](compute func() T) *Computed[T] {
	return NewComputedIn[T](Default(), compute)
}

// NewComputedIn creates a computed value in an explicit runtime. If an owner
// is current, disposal of that owner detaches the computed from all of its
// dependencies.
func NewComputedIn[T any](rt *Runtime, compute func() T) *Computed[T] {
	c := &Computed[T]{
		rt:        rt,
		id:        nextID(),
		compute:   compute,
		computeMu: newTimedMutex(),
		sourcesMu: newTimedMutex(),
		subMu:     newTimedMutex(),
	}
	c.dirty.Store(true)

	if o := currentOwner(); o != nil {
		o.OnCleanup(c.detachAll)
	}
	return c
}

// Get returns the computed value, recomputing first if a dependency changed
// since the last evaluation. The read is recorded in the enclosing
// evaluation's dependency set.
//
// Panics with a CircularDependencyError if this computed is already
// evaluating on the current goroutine. The failure is not cached: the entry
// stays dirty and the next access re-attempts evaluation.
func (c *Computed[T]) Get() T {
	recordRead(c)

	ctx := currentContext()
	if _, evaluating := ctx.evalStack[c.id]; evaluating {
		panic(&CircularDependencyError{ComputedID: c.id})
	}

	c.ensureFresh(ctx)

	c.valueMu.RLock()
	v := c.value
	c.valueMu.RUnlock()
	return v
}

// Peek returns the value without recording a dependency. Still recomputes
// when dirty.
func (c *Computed[T]) Peek() T {
	ctx := currentContext()
	if _, evaluating := ctx.evalStack[c.id]; evaluating {
		panic(&CircularDependencyError{ComputedID: c.id})
	}

	c.ensureFresh(ctx)

	c.valueMu.RLock()
	v := c.value
	c.valueMu.RUnlock()
	return v
}

// ensureFresh guarantees the cache holds a committed value before the caller
// reads it. Winning the dirty swap recomputes here. Losing it is only safe
// once the first evaluation has committed; before that, the loser waits on
// computeMu for the in-flight evaluation and re-checks, because the winner
// restores dirty if it panics.
func (c *Computed[T]) ensureFresh(ctx *trackingContext) {
	for {
		if c.dirty.Swap(false) {
			c.recompute(ctx)
			return
		}
		if c.initialized.Load() {
			return
		}
		if err := c.computeMu.lock("computed compute function", c.rt.cfg.LockTimeout); err != nil {
			c.rt.lockTimeouts.Add(1)
			c.rt.instr.LockTimedOut("computed compute function")
			panic(err)
		}
		c.computeMu.unlock()
	}
}

// IsDirty reports whether the cache is stale.
func (c *Computed[T]) IsDirty() bool {
	return c.dirty.Load()
}

// ID returns the computed's unique identifier.
func (c *Computed[T]) ID() uint64 {
	return c.id
}

// MarkDirty invalidates the cache and propagates staleness downstream.
// Idempotent: only the clean-to-dirty transition notifies subscribers.
func (c *Computed[T]) MarkDirty() {
	if c.dirty.CompareAndSwap(false, true) {
		c.notifySubscribers()
	}
}

// recompute runs the compute function with tracking enabled and commits the
// value and dependency set. A panicking evaluation commits neither: the
// entry returns to dirty and the panic propagates.
func (c *Computed[T]) recompute(ctx *trackingContext) {
	cfg := c.rt.cfg
	if err := c.computeMu.lock("computed compute function", cfg.LockTimeout); err != nil {
		c.dirty.Store(true)
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed compute function")
		panic(err)
	}
	defer c.computeMu.unlock()

	if ctx.evalDepth >= cfg.MaxComputedDepth {
		c.dirty.Store(true)
		panic(&ResourceExhaustedError{Resource: "computed dependency depth", Limit: cfg.MaxComputedDepth})
	}

	if ctx.evalStack == nil {
		ctx.evalStack = make(map[uint64]struct{})
	}
	ctx.evalStack[c.id] = struct{}{}
	ctx.evalDepth++

	frame := beginEvaluation(c)
	committed := false
	defer func() {
		delete(ctx.evalStack, c.id)
		ctx.evalDepth--
		if !committed {
			abortEvaluation(frame)
			c.dirty.Store(true)
		}
	}()

	start := time.Now()
	value := c.compute()

	deps := finishEvaluation(frame)
	committed = true

	c.commitSources(deps)

	c.valueMu.Lock()
	c.value = value
	c.valueMu.Unlock()
	c.initialized.Store(true)

	c.rt.recomputes.Add(1)
	c.rt.instr.ComputedRecomputed(time.Since(start))
}

// commitSources replaces the dependency set with the sources read by the
// evaluation that just completed. If a subscription fails mid-commit, the
// partial set is rolled back and the computed returns to dirty, so the next
// access re-attempts from scratch.
func (c *Computed[T]) commitSources(deps []source) {
	cfg := c.rt.cfg
	if err := c.sourcesMu.lock("computed dependency set", cfg.LockTimeout); err != nil {
		c.dirty.Store(true)
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed dependency set")
		panic(err)
	}
	defer c.sourcesMu.unlock()

	for _, s := range c.sources {
		s.detach(c)
	}
	c.sources = nil

	attached := make([]source, 0, len(deps))
	for _, s := range deps {
		if err := s.attach(c); err != nil {
			for _, a := range attached {
				a.detach(c)
			}
			c.dirty.Store(true)
			panic(err)
		}
		attached = append(attached, s)
	}
	c.sources = attached
}

// detachAll unsubscribes from every dependency and marks the cache stale.
// Registered as the owner cleanup.
func (c *Computed[T]) detachAll() {
	if err := c.sourcesMu.lock("computed dependency set", c.rt.cfg.LockTimeout); err != nil {
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed dependency set")
		panic(err)
	}
	defer c.sourcesMu.unlock()

	for _, s := range c.sources {
		s.detach(c)
	}
	c.sources = nil
	c.dirty.Store(true)
}

// notifySubscribers marks every subscriber dirty. Copy-before-notify so no
// lock is held while subscribers run.
func (c *Computed[T]) notifySubscribers() {
	subs := c.snapshotSubs()
	for _, sub := range subs {
		sub.MarkDirty()
	}
}

func (c *Computed[T]) snapshotSubs() []Listener {
	if err := c.subMu.lock("computed subscriber set", c.rt.cfg.LockTimeout); err != nil {
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed subscriber set")
		panic(err)
	}
	defer c.subMu.unlock()
	if len(c.subs) == 0 {
		return nil
	}
	subs := make([]Listener, len(c.subs))
	copy(subs, c.subs)
	return subs
}

// attach implements source: downstream evaluations subscribe to this
// computed the same way they subscribe to a signal.
func (c *Computed[T]) attach(l Listener) error {
	if l == nil {
		return nil
	}
	if err := c.subMu.lock("computed subscriber set", c.rt.cfg.LockTimeout); err != nil {
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed subscriber set")
		return err
	}
	defer c.subMu.unlock()

	lid := l.ID()
	for _, existing := range c.subs {
		if existing.ID() == lid {
			return nil
		}
	}
	if len(c.subs) >= c.rt.cfg.MaxSubscribersPerSignal {
		return &ResourceExhaustedError{
			Resource: "subscribers of computed",
			Limit:    c.rt.cfg.MaxSubscribersPerSignal,
		}
	}
	c.subs = append(c.subs, l)
	return nil
}

func (c *Computed[T]) detach(l Listener) {
	if l == nil {
		return
	}
	if err := c.subMu.lock("computed subscriber set", c.rt.cfg.LockTimeout); err != nil {
		c.rt.lockTimeouts.Add(1)
		c.rt.instr.LockTimedOut("computed subscriber set")
		panic(err)
	}
	defer c.subMu.unlock()

	lid := l.ID()
	for i, existing := range c.subs {
		if existing.ID() == lid {
			c.subs[i] = c.subs[len(c.subs)-1]
			c.subs = c.subs[:len(c.subs)-1]
			return
		}
	}
}

func (c *Computed[T]) sourceID() uint64 {
	return c.id
}
