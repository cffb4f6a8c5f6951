package filament

import (
	"fmt"
	"reflect"
)

// Signal is a handle to a mutable reactive value cell. The handle holds only
// the runtime and the cell's ID; the value itself lives in the runtime's
// store. Reading a Signal during a computed or effect evaluation records the
// cell in that evaluation's dependency set.
//
// Handles are cheap to copy and safe for concurrent use.
type Signal[T any] struct {
	rt *Runtime
	id SignalID
}

// NewSignal creates a signal in the default runtime.
// Panics with a ResourceExhaustedError when the configured signal limit
// would be exceeded.
func NewSignal[T any](initial T) *Signal[T] {
	return NewSignalIn[T](Default(), initial)
}

// NewSignalIn creates a signal in an explicit runtime.
func NewSignalIn[T any](rt *Runtime, initial T) *Signal[T] {
	id, err := rt.store.create(initial)
	if err != nil {
		panic(err)
	}
	rt.signalsCreated.Add(1)
	rt.instr.SignalCreated()
	return &Signal[T]{rt: rt, id: id}
}

// Get returns the current value and records the read in the active
// evaluation's dependency set. Never blocks beyond the store's read lock.
func (s *Signal[T]) Get() T {
	v := s.load()
	recordRead(signalSource{rt: s.rt, id: s.id})
	return v
}

// Peek returns the current value without recording a dependency.
func (s *Signal[T]) Peek() T {
	return s.load()
}

func (s *Signal[T]) load() T {
	raw := s.rt.store.get(s.id)
	v, ok := raw.(T)
	if !ok {
		panic(fmt.Sprintf("filament: signal %d holds %T, requested %v", s.id, raw, reflect.TypeFor[T]()))
	}
	return v
}

// Set replaces the value, increments the cell's version, and routes one
// notification through the batch coordinator.
func (s *Signal[T]) Set(value T) {
	s.rt.store.set(s.id, value)
	s.rt.signalsWritten.Add(1)
	s.rt.instr.SignalWritten()
	s.rt.notifySignal(s.id)
}

// Update atomically replaces the value with fn(current). If fn panics the
// cell keeps its old value, no notification is routed, and the panic
// propagates to the caller.
func (s *Signal[T]) Update(fn func(T) T) {
	s.rt.store.update(s.id, func(raw any) any {
		v, ok := raw.(T)
		if !ok {
			panic(fmt.Sprintf("filament: signal %d holds %T, requested %v", s.id, raw, reflect.TypeFor[T]()))
		}
		return fn(v)
	})
	s.rt.signalsWritten.Add(1)
	s.rt.instr.SignalWritten()
	s.rt.notifySignal(s.id)
}

// Subscribe adds a listener to this signal's subscriber set. Returns a
// ResourceExhaustedError when the per-signal subscriber limit is reached.
// Most callers never need this; reading inside an effect subscribes
// automatically.
func (s *Signal[T]) Subscribe(l Listener) error {
	return s.rt.store.subscribe(s.id, l)
}

// Unsubscribe removes a listener added by Subscribe or by tracking.
func (s *Signal[T]) Unsubscribe(l Listener) {
	s.rt.store.unsubscribe(s.id, l)
}

// ID returns the signal's store identifier.
func (s *Signal[T]) ID() SignalID {
	return s.id
}

// Version returns the cell's write counter. It increases by one for every
// successful Set or Update.
func (s *Signal[T]) Version() uint64 {
	return s.rt.store.version(s.id)
}

// Runtime returns the runtime this signal lives in.
func (s *Signal[T]) Runtime() *Runtime {
	return s.rt
}

// signalSource adapts a store cell to the source interface so evaluations
// can commit subscriptions to it.
type signalSource struct {
	rt *Runtime
	id SignalID
}

func (s signalSource) attach(l Listener) error {
	return s.rt.store.subscribe(s.id, l)
}

func (s signalSource) detach(l Listener) {
	s.rt.store.unsubscribe(s.id, l)
}

func (s signalSource) sourceID() uint64 {
	return uint64(s.id)
}
