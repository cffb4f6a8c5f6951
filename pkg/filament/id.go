package filament

import "sync/atomic"

// SignalID identifies a value cell in the store. IDs are process-unique,
// monotonically issued, and never reused while the entry exists.
type SignalID uint64

// globalIDCounter is the source of unique IDs for all reactive primitives.
// Signals, computed values, effects, and owners share one ID space.
var globalIDCounter uint64

// nextID returns the next unique ID for a reactive primitive.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
