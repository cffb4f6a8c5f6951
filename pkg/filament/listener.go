package filament

// Listener is anything that can be notified when a dependency changes.
// Computed values and effects implement it; applications may provide their
// own listeners via Signal.Subscribe.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For computed values this invalidates the cache; for effects it
	// schedules a re-run.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication in subscriber sets and the effect queue.
	ID() uint64
}

// Cleanup is a deferred action returned by an effect body. It runs before
// the effect's next invocation and when the effect is disposed.
type Cleanup func()

// source is anything an evaluation can depend on: a stored signal or a
// computed value. Dependency sets hold sources so an evaluation can replace
// its subscriptions wholesale after it completes.
type source interface {
	// attach subscribes l to this source. Fails with a
	// ResourceExhaustedError when the subscriber limit is reached.
	attach(l Listener) error

	// detach removes l from this source's subscribers.
	detach(l Listener)

	// sourceID returns the unique ID of the underlying cell.
	sourceID() uint64
}
