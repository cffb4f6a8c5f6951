package filament

import "time"

// timedMutex is a mutex whose acquisition waits at most a bounded duration.
// Recomputation locks use it so a dependency cycle spanning goroutines fails
// loudly with a DeadlockError instead of hanging both goroutines forever.
type timedMutex struct {
	ch chan struct{}
}

func newTimedMutex() *timedMutex {
	m := &timedMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// lock acquires the mutex, waiting up to timeout. On timeout it returns a
// DeadlockError naming the guarded resource.
func (m *timedMutex) lock(resource string, timeout time.Duration) error {
	select {
	case <-m.ch:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.ch:
		return nil
	case <-timer.C:
		return &DeadlockError{Resource: resource, Timeout: timeout}
	}
}

func (m *timedMutex) unlock() {
	select {
	case m.ch <- struct{}{}:
	default:
		panic("filament: unlock of an unlocked timedMutex")
	}
}
