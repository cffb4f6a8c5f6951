package filament

import (
	"errors"
	"testing"
)

func TestSignalBasic(t *testing.T) {
	count := NewSignal(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSignalSubscription(t *testing.T) {
	count := NewSignal(0)
	listener := newTestListener()

	if err := count.Subscribe(listener); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}

	// Writing the current value again still notifies.
	count.Set(1)
	if listener.getDirtyCount() != 2 {
		t.Errorf("expected 2 notifications, got %d", listener.getDirtyCount())
	}

	count.Unsubscribe(listener)
	count.Set(2)
	if listener.getDirtyCount() != 2 {
		t.Errorf("unsubscribed listener was notified, got %d", listener.getDirtyCount())
	}
}

func TestSignalSubscribeDedup(t *testing.T) {
	count := NewSignal(0)
	listener := newTestListener()

	for i := 0; i < 3; i++ {
		if err := count.Subscribe(listener); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("duplicate subscription delivered %d notifications, want 1", listener.getDirtyCount())
	}
}

func TestSignalPeekDoesNotTrack(t *testing.T) {
	count := NewSignal(42)
	runs := 0

	eff := NewEffect(func() Cleanup {
		runs++
		_ = count.Peek()
		return nil
	})
	defer eff.Dispose()

	count.Set(100)
	if runs != 1 {
		t.Errorf("Peek subscribed the effect, got %d runs", runs)
	}
}

func TestSignalVersion(t *testing.T) {
	count := NewSignal(0)
	v0 := count.Version()

	count.Set(1)
	count.Set(2)
	if got := count.Version(); got != v0+2 {
		t.Errorf("expected version %d after 2 writes, got %d", v0+2, got)
	}
}

func TestSignalUpdatePanicLeavesValue(t *testing.T) {
	count := NewSignal(7)
	listener := newTestListener()
	if err := count.Subscribe(listener); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	func() {
		defer func() { _ = recover() }()
		count.Update(func(n int) int { panic("boom") })
	}()

	if count.Get() != 7 {
		t.Errorf("panicking update changed value to %d", count.Get())
	}
	if listener.getDirtyCount() != 0 {
		t.Errorf("panicking update notified %d times, want 0", listener.getDirtyCount())
	}
}

func TestSignalMaxSignalsLimit(t *testing.T) {
	rt := NewWithConfig(&RuntimeConfig{MaxSignals: 2})

	NewSignalIn(rt, 1)
	NewSignalIn(rt, 2)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic creating signal past the limit")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrResourceExhausted) {
			t.Errorf("expected ErrResourceExhausted, got %v", r)
		}
	}()
	NewSignalIn(rt, 3)
}

func TestSignalMaxSubscribersLimit(t *testing.T) {
	rt := NewWithConfig(&RuntimeConfig{MaxSubscribersPerSignal: 2})
	count := NewSignalIn(rt, 0)

	if err := count.Subscribe(newTestListener()); err != nil {
		t.Fatalf("first Subscribe failed: %v", err)
	}
	if err := count.Subscribe(newTestListener()); err != nil {
		t.Fatalf("second Subscribe failed: %v", err)
	}

	err := count.Subscribe(newTestListener())
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestReleaseSignal(t *testing.T) {
	rt := New()
	count := NewSignalIn(rt, 1)

	if !rt.ReleaseSignal(count.ID()) {
		t.Error("ReleaseSignal returned false for a live signal")
	}
	if rt.ReleaseSignal(count.ID()) {
		t.Error("ReleaseSignal returned true for a released signal")
	}
}

func TestSignalRuntimeIsolation(t *testing.T) {
	rt1 := New()
	rt2 := New()

	a := NewSignalIn(rt1, 1)
	b := NewSignalIn(rt2, 2)

	a.Set(10)
	if b.Get() != 2 {
		t.Errorf("write in one runtime leaked into another, got %d", b.Get())
	}
	if rt1.Stats().SignalsWritten == 0 {
		t.Error("expected write counter to advance")
	}
	if rt2.Stats().SignalsWritten != 0 {
		t.Errorf("unexpected writes in second runtime: %d", rt2.Stats().SignalsWritten)
	}
}
