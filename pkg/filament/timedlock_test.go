package filament

import (
	"errors"
	"testing"
	"time"
)

func TestTimedMutexLockUnlock(t *testing.T) {
	m := newTimedMutex()
	if err := m.lock("test resource", time.Second); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	m.unlock()
	if err := m.lock("test resource", time.Second); err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	m.unlock()
}

func TestTimedMutexTimeout(t *testing.T) {
	m := newTimedMutex()
	if err := m.lock("test resource", time.Second); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	defer m.unlock()

	err := m.lock("test resource", 20*time.Millisecond)
	if !errors.Is(err, ErrDeadlockDetected) {
		t.Fatalf("expected ErrDeadlockDetected, got %v", err)
	}

	var dl *DeadlockError
	if !errors.As(err, &dl) {
		t.Fatalf("expected *DeadlockError, got %T", err)
	}
	if dl.Resource != "test resource" {
		t.Errorf("expected resource name in error, got %q", dl.Resource)
	}
	if dl.Timeout != 20*time.Millisecond {
		t.Errorf("expected timeout in error, got %v", dl.Timeout)
	}
}

func TestTimedMutexContention(t *testing.T) {
	m := newTimedMutex()
	if err := m.lock("test resource", time.Second); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- m.lock("test resource", time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	m.unlock()

	if err := <-acquired; err != nil {
		t.Fatalf("waiter failed to acquire after unlock: %v", err)
	}
	m.unlock()
}

func TestTimedMutexUnlockNotHeld(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic unlocking a mutex that is not held")
		}
	}()
	newTimedMutex().unlock()
}
