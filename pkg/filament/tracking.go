package filament

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for one goroutine: the evaluation
// currently recording dependencies, the owner for new primitives, the batch
// frame, and the computed-evaluation stack for cycle detection. Goroutines
// never share a context, which is what makes batching and dependency
// tracking safe under parallel access.
type trackingContext struct {
	// listener is the computed value or effect currently evaluating.
	// nil means reads do not create subscriptions.
	listener Listener

	// deps records the sources read by the current evaluation. It is
	// committed as the listener's dependency set only after the evaluation
	// completes without panicking.
	deps *depSet

	// owner receives newly created effects and computed cleanups.
	owner *Owner

	// batchDepth tracks nested Batch calls. While > 0, notifications are
	// queued in pending instead of flushing.
	batchDepth int

	// pending is the insertion-ordered flush set, deduplicated by signal.
	pending    []flushTarget
	pendingSet map[SignalID]struct{}

	// flushing guards against re-entrant flushes: a write made while the
	// flush loop runs lands in pending and is picked up by the same loop.
	flushing bool

	// draining guards against re-entrant effect draining.
	draining bool

	// drainList holds the runtimes whose effect schedulers received work
	// during the current flush, deduplicated.
	drainList []*Runtime

	// evalStack holds the IDs of computed values evaluating on this
	// goroutine, for same-stack cycle detection.
	evalStack map[uint64]struct{}

	// evalDepth is the current computed evaluation nesting depth.
	evalDepth int
}

// flushTarget is one queued notification: a signal and the runtime whose
// store holds it. Signal IDs are unique across runtimes, so the ID alone
// deduplicates.
type flushTarget struct {
	rt *Runtime
	id SignalID
}

// trackingContexts stores per-goroutine contexts, keyed by goroutine ID.
var trackingContexts sync.Map

// getGoroutineID parses the current goroutine's ID out of the runtime stack
// header ("goroutine <id> ..."). Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// currentContext returns the tracking context for the current goroutine,
// creating one on first use.
func currentContext() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// dropGoroutineContext removes the current goroutine's context. Contexts are
// small and reusable, so calling this is optional; long-lived worker pools
// may use it to keep the context map bounded.
func dropGoroutineContext() {
	trackingContexts.Delete(getGoroutineID())
}

// enqueue adds a notification to the batch frame in first-seen order.
// A signal written several times inside one frame flushes once.
func (ctx *trackingContext) enqueue(t flushTarget) {
	if ctx.pendingSet == nil {
		ctx.pendingSet = make(map[SignalID]struct{})
	}
	if _, ok := ctx.pendingSet[t.id]; ok {
		return
	}
	ctx.pendingSet[t.id] = struct{}{}
	ctx.pending = append(ctx.pending, t)
}

// noteDrain records that rt's scheduler has queued effects to run.
func (ctx *trackingContext) noteDrain(rt *Runtime) {
	for _, r := range ctx.drainList {
		if r == rt {
			return
		}
	}
	ctx.drainList = append(ctx.drainList, rt)
}

// depSet is the insertion-ordered set of sources read during one evaluation.
type depSet struct {
	order []source
	seen  map[uint64]struct{}
}

func (d *depSet) add(src source) {
	if d.seen == nil {
		d.seen = make(map[uint64]struct{})
	}
	id := src.sourceID()
	if _, ok := d.seen[id]; ok {
		return
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, src)
}

// evalFrame saves the tracking state displaced by a nested evaluation.
type evalFrame struct {
	prevListener Listener
	prevDeps     *depSet
}

// beginEvaluation makes l the current listener and starts a fresh dependency
// record. Pair with finishEvaluation or abortEvaluation.
func beginEvaluation(l Listener) evalFrame {
	ctx := currentContext()
	frame := evalFrame{prevListener: ctx.listener, prevDeps: ctx.deps}
	ctx.listener = l
	ctx.deps = &depSet{}
	return frame
}

// finishEvaluation restores the displaced state and returns the recorded
// dependency set for committing.
func finishEvaluation(frame evalFrame) []source {
	ctx := currentContext()
	deps := ctx.deps.order
	ctx.listener = frame.prevListener
	ctx.deps = frame.prevDeps
	return deps
}

// abortEvaluation restores the displaced state and discards the record.
// Used when the evaluation panicked: a partial dependency set is never
// committed.
func abortEvaluation(frame evalFrame) {
	ctx := currentContext()
	ctx.listener = frame.prevListener
	ctx.deps = frame.prevDeps
}

// recordRead notes that the current evaluation read src.
func recordRead(src source) {
	ctx := currentContext()
	if ctx.deps != nil {
		ctx.deps.add(src)
	}
}

// currentOwner returns the owner for newly created primitives on this
// goroutine, or nil.
func currentOwner() *Owner {
	return currentContext().owner
}

// setCurrentOwner installs o and returns the previous owner for restoring.
func setCurrentOwner(o *Owner) *Owner {
	ctx := currentContext()
	old := ctx.owner
	ctx.owner = o
	return old
}

// WithOwner runs fn with owner as the current owner. Effects and computed
// values created inside fn are cleaned up when owner is disposed. Use it
// when spawning goroutines whose primitives should belong to an existing
// scope:
//
//	go func() {
//	    filament.WithOwner(parent, func() {
//	        filament.NewEffect(func() filament.Cleanup { ... })
//	    })
//	}()
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// Untracked runs fn without recording signal reads as dependencies.
// For a single read, Signal.Peek is clearer.
func Untracked(fn func()) {
	ctx := currentContext()
	prevListener, prevDeps := ctx.listener, ctx.deps
	ctx.listener = nil
	ctx.deps = nil
	defer func() {
		ctx.listener = prevListener
		ctx.deps = prevDeps
	}()
	fn()
}
