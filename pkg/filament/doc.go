// Package filament provides a fine-grained reactive state runtime: mutable
// value cells ("signals") with automatic dependency tracking, cached derived
// computations, batched change notification, and an ownership tree for
// exactly-once cleanup.
//
// The runtime is UI-agnostic. It answers "which observers must be notified
// when which values change"; consumers subscribe effects whose bodies call
// back into whatever needs rebuilding.
//
// # Core Types
//
// Signal[T] is a reactive value cell:
//
//	count := filament.NewSignal(0)
//	value := count.Get()  // read (subscribes the current evaluation)
//	count.Set(5)          // write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a cached derived computation whose inputs are discovered
// automatically:
//
//	doubled := filament.NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()  // recomputes only if a dependency changed
//
// Effects run side effects when their dependencies change:
//
//	filament.NewEffect(func() filament.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return func() { /* runs before the next invocation */ }
//	})
//
// # Batching
//
// Multiple writes can be grouped so subscribers are notified once:
//
//	filament.Batch(func() {
//	    first.Set("a")
//	    last.Set("b")
//	})
//
// # Ownership
//
// Owners form a tree of lifetime scopes. Effects and computed values created
// under an owner are torn down exactly once when the owner is disposed, no
// matter how many goroutines race to dispose it.
//
// # Thread Safety
//
// All primitives may be used from multiple goroutines. Dependency tracking
// and batching are per-goroutine; value storage is shared and sharded.
// Computed recomputation holds bounded-wait locks and fails with a
// DeadlockError instead of hanging when a cross-goroutine dependency cycle
// keeps a lock held.
package filament
