package filament

import (
	"sync"
	"testing"
)

func TestGoroutineIDStableAndDistinct(t *testing.T) {
	id1 := getGoroutineID()
	id2 := getGoroutineID()
	if id1 != id2 {
		t.Errorf("goroutine ID changed between calls: %d vs %d", id1, id2)
	}

	other := make(chan uint64, 1)
	go func() {
		other <- getGoroutineID()
	}()
	if got := <-other; got == id1 {
		t.Error("two goroutines reported the same ID")
	}
}

func TestContextsAreGoroutineLocal(t *testing.T) {
	count := NewSignal(0)
	listener := newTestListener()
	if err := count.Subscribe(listener); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	inBatch := make(chan struct{})
	finish := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Batch(func() {
			count.Set(1)
			close(inBatch)
			<-finish
		})
	}()

	// A batch open on another goroutine does not defer writes here.
	<-inBatch
	before := listener.getDirtyCount()
	count.Set(2)
	if listener.getDirtyCount() != before+1 {
		t.Error("write on this goroutine was deferred by another goroutine's batch")
	}

	close(finish)
	wg.Wait()
}

func TestWithOwnerRestoresPrevious(t *testing.T) {
	outer := NewOwner(nil)
	inner := NewOwner(nil)

	WithOwner(outer, func() {
		if currentOwner() != outer {
			t.Error("outer owner not installed")
		}
		WithOwner(inner, func() {
			if currentOwner() != inner {
				t.Error("inner owner not installed")
			}
		})
		if currentOwner() != outer {
			t.Error("outer owner not restored after nested scope")
		}
	})
	if currentOwner() != nil {
		t.Error("owner leaked out of WithOwner")
	}
}

func TestUntrackedRestoresTracking(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)

	runs := 0
	eff := NewEffect(func() Cleanup {
		runs++
		Untracked(func() {
			_ = a.Get()
		})
		_ = b.Get()
		return nil
	})
	defer eff.Dispose()

	a.Set(1)
	if runs != 1 {
		t.Errorf("read inside Untracked subscribed, got %d runs", runs)
	}
	b.Set(1)
	if runs != 2 {
		t.Errorf("tracking did not resume after Untracked, got %d runs", runs)
	}
}

func TestDepSetDedupPreservesOrder(t *testing.T) {
	rt := New()
	a := NewSignalIn(rt, 1)
	b := NewSignalIn(rt, 2)

	d := &depSet{}
	srcA := signalSource{rt: rt, id: a.ID()}
	srcB := signalSource{rt: rt, id: b.ID()}
	d.add(srcA)
	d.add(srcB)
	d.add(srcA)

	if len(d.order) != 2 {
		t.Fatalf("expected 2 unique sources, got %d", len(d.order))
	}
	if d.order[0].sourceID() != uint64(a.ID()) || d.order[1].sourceID() != uint64(b.ID()) {
		t.Error("dedup broke insertion order")
	}
}

func TestDropGoroutineContext(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer dropGoroutineContext()
		_ = currentContext()
		gid := getGoroutineID()
		if _, ok := trackingContexts.Load(gid); !ok {
			t.Error("context missing while goroutine is live")
		}
	}()
	<-done
}
