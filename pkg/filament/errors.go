package filament

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching. The typed errors below carry the
// detail; these anchor the category.
var (
	// ErrResourceExhausted is the category for configured limit violations:
	// signal count, subscriber count, or computed dependency depth.
	// This is the one category an application may reasonably catch and
	// handle by adjusting RuntimeConfig.
	ErrResourceExhausted = errors.New("filament: resource limit exceeded")

	// ErrCircularDependency is the category for a computed value observed
	// evaluating itself on the same call stack.
	ErrCircularDependency = errors.New("filament: circular dependency")

	// ErrDeadlockDetected is the category for a lock that could not be
	// acquired within the bounded wait. It implies a cross-goroutine
	// dependency cycle or a contention bug.
	ErrDeadlockDetected = errors.New("filament: deadlock detected")

	// ErrExcessiveNesting is the category for batch nesting beyond the
	// hard limit.
	ErrExcessiveNesting = errors.New("filament: excessive batch nesting")
)

// ResourceExhaustedError reports a configured limit violation. It is raised
// at the point of creation or subscription, never deferred.
type ResourceExhaustedError struct {
	Resource string // what ran out: "signals", "subscribers of signal N", ...
	Limit    int    // the configured limit that was hit
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("filament: %s limit exceeded (max %d)", e.Resource, e.Limit)
}

func (e *ResourceExhaustedError) Is(target error) bool {
	return target == ErrResourceExhausted
}

// CircularDependencyError reports a computed value that re-entered its own
// evaluation on the same goroutine. The result is never cached: the entry
// stays dirty, so the failure recurs deterministically until the cycle is
// removed.
type CircularDependencyError struct {
	ComputedID uint64
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("filament: circular dependency detected in computed %d; computed values cannot read themselves", e.ComputedID)
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// DeadlockError reports a lock that was not acquired within the bounded
// wait. Cycles that span goroutines evade same-stack cycle detection and
// surface here instead of hanging.
type DeadlockError struct {
	Resource string
	Timeout  time.Duration
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("filament: failed to acquire %s within %s; likely a dependency cycle across goroutines", e.Resource, e.Timeout)
}

func (e *DeadlockError) Is(target error) bool {
	return target == ErrDeadlockDetected
}

// ExcessiveNestingError reports batch nesting at or beyond the hard limit.
type ExcessiveNestingError struct {
	Depth int
}

func (e *ExcessiveNestingError) Error() string {
	return fmt.Sprintf("filament: batch nesting reached depth %d; refusing to nest further", e.Depth)
}

func (e *ExcessiveNestingError) Is(target error) bool {
	return target == ErrExcessiveNesting
}
