package filament

import (
	"sync"
	"sync/atomic"
)

// Owner is a lifetime scope for reactive primitives. Effects and computed
// cleanups created under an owner are torn down when the owner is disposed.
// Owners form a tree, not a DAG: every owner has at most one parent.
//
// Disposal runs the subtree exactly once no matter how many goroutines race
// to dispose it: the disposed flag transitions with one compare-and-set and
// only the winner performs the walk.
type Owner struct {
	id uint64

	// parent is nil for a root owner.
	parent *Owner

	childrenMu sync.Mutex
	children   []*Owner

	effectsMu sync.Mutex
	effects   []*Effect

	cleanupsMu sync.Mutex
	cleanups   []func()

	disposed atomic.Bool
}

// NewOwner creates an owner under parent. A nil parent creates a root.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(o)
	}
	return o
}

// Child creates and links a new owner under this one.
func (o *Owner) Child() *Owner {
	return NewOwner(o)
}

// ID returns the owner's unique identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has run or is running.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// registerEffect adds an effect to be disposed with this owner.
func (o *Owner) registerEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}
	o.effectsMu.Lock()
	defer o.effectsMu.Unlock()
	o.effects = append(o.effects, e)
}

// OnCleanup registers an action to run on disposal. Registering on an
// already-disposed owner runs the action immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Dispose tears down this owner's subtree: children depth-first in creation
// order, then owned effects, then local cleanups in registration order.
// Concurrent callers that lose the compare-and-set return immediately;
// every cleanup runs exactly once.
func (o *Owner) Dispose() {
	if !o.disposed.CompareAndSwap(false, true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for _, child := range children {
		child.Dispose()
	}

	o.effectsMu.Lock()
	effects := o.effects
	o.effects = nil
	o.effectsMu.Unlock()

	for _, e := range effects {
		e.Dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for _, fn := range cleanups {
		fn()
	}
}
