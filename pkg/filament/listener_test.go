package filament

import "sync"

// testListener counts MarkDirty calls for subscription tests.
type testListener struct {
	id uint64

	mu    sync.Mutex
	dirty int
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty++
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}
