package filament

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// numShards partitions the value store to keep read contention low.
// Must be a power of two.
const numShards = 32

// entry is one cell in the value store. The store owns it exclusively;
// handles hold only an ID and a type parameter.
type entry struct {
	mu      sync.RWMutex
	value   any
	version uint64

	subMu sync.RWMutex
	subs  []Listener
}

type storeShard struct {
	mu      sync.RWMutex
	entries map[SignalID]*entry
}

// store holds every signal's current value and subscriber set, keyed by
// SignalID. Pure data plus locking; notification policy lives in Runtime.
type store struct {
	shards [numShards]storeShard
	count  atomic.Int64

	maxSignals     int
	maxSubscribers int
}

func newStore(cfg *RuntimeConfig) *store {
	s := &store{
		maxSignals:     cfg.MaxSignals,
		maxSubscribers: cfg.MaxSubscribersPerSignal,
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[SignalID]*entry)
	}
	return s
}

func (s *store) shardFor(id SignalID) *storeShard {
	return &s.shards[uint64(id)&(numShards-1)]
}

// create allocates a new cell. Allocation is the only side effect.
func (s *store) create(initial any) (SignalID, error) {
	if int(s.count.Load()) >= s.maxSignals {
		return 0, &ResourceExhaustedError{Resource: "signals", Limit: s.maxSignals}
	}

	id := SignalID(nextID())
	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.entries[id] = &entry{value: initial}
	sh.mu.Unlock()
	s.count.Add(1)
	return id, nil
}

// lookup returns the entry for id, or panics. A missing entry means a handle
// outlived an explicit release, which is a caller bug.
func (s *store) lookup(id SignalID) *entry {
	sh := s.shardFor(id)
	sh.mu.RLock()
	e := sh.entries[id]
	sh.mu.RUnlock()
	if e == nil {
		panic(fmt.Sprintf("filament: signal %d not found in the value store", id))
	}
	return e
}

// lookupOK is lookup for paths that must tolerate released entries, like
// unsubscription and flush-time subscriber snapshots.
func (s *store) lookupOK(id SignalID) *entry {
	sh := s.shardFor(id)
	sh.mu.RLock()
	e := sh.entries[id]
	sh.mu.RUnlock()
	return e
}

func (s *store) get(id SignalID) any {
	e := s.lookup(id)
	e.mu.RLock()
	v := e.value
	e.mu.RUnlock()
	return v
}

func (s *store) version(id SignalID) uint64 {
	e := s.lookup(id)
	e.mu.RLock()
	v := e.version
	e.mu.RUnlock()
	return v
}

func (s *store) set(id SignalID, v any) {
	e := s.lookup(id)
	e.mu.Lock()
	e.value = v
	e.version++
	e.mu.Unlock()
}

// update applies fn to the current value. If fn panics, the entry keeps its
// old value and version and the panic propagates: the value is assigned only
// after fn returns.
func (s *store) update(id SignalID, fn func(any) any) {
	e := s.lookup(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	next := fn(e.value)
	e.value = next
	e.version++
}

// subscribe adds l to the cell's subscriber set, deduplicated by listener
// ID. Fails with ResourceExhaustedError at the configured per-signal limit.
func (s *store) subscribe(id SignalID, l Listener) error {
	if l == nil {
		return nil
	}
	e := s.lookup(id)
	e.subMu.Lock()
	defer e.subMu.Unlock()

	lid := l.ID()
	for _, existing := range e.subs {
		if existing.ID() == lid {
			return nil
		}
	}
	if len(e.subs) >= s.maxSubscribers {
		return &ResourceExhaustedError{
			Resource: fmt.Sprintf("subscribers of signal %d", id),
			Limit:    s.maxSubscribers,
		}
	}
	e.subs = append(e.subs, l)
	return nil
}

// unsubscribe removes l from the cell's subscriber set. Removal from a
// released cell is a no-op.
func (s *store) unsubscribe(id SignalID, l Listener) {
	if l == nil {
		return
	}
	e := s.lookupOK(id)
	if e == nil {
		return
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()

	lid := l.ID()
	for i, existing := range e.subs {
		if existing.ID() == lid {
			// Swap-remove; subscriber order does not matter, flush order is
			// defined by the batch frame's signal order.
			e.subs[i] = e.subs[len(e.subs)-1]
			e.subs = e.subs[:len(e.subs)-1]
			return
		}
	}
}

// subscribers returns a snapshot so notification never runs under the lock.
func (s *store) subscribers(id SignalID) []Listener {
	e := s.lookupOK(id)
	if e == nil {
		return nil
	}
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	if len(e.subs) == 0 {
		return nil
	}
	subs := make([]Listener, len(e.subs))
	copy(subs, e.subs)
	return subs
}

func (s *store) subscriberCount(id SignalID) int {
	e := s.lookupOK(id)
	if e == nil {
		return 0
	}
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	return len(e.subs)
}

// remove deletes the cell. Disposing an owner never calls this; storage
// reclamation is an explicit application decision via Runtime.ReleaseSignal.
func (s *store) remove(id SignalID) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if ok {
		delete(sh.entries, id)
	}
	sh.mu.Unlock()
	if !ok {
		return false
	}
	s.count.Add(-1)
	e.subMu.Lock()
	e.subs = nil
	e.subMu.Unlock()
	return true
}

func (s *store) len() int {
	return int(s.count.Load())
}
