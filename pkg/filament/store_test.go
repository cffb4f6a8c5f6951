package filament

import (
	"errors"
	"sync"
	"testing"
)

func TestStoreCreateGetSet(t *testing.T) {
	s := newStore(DefaultRuntimeConfig())

	id, err := s.create("initial")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if got := s.get(id); got != "initial" {
		t.Errorf("get returned %v, want initial", got)
	}

	s.set(id, "updated")
	if got := s.get(id); got != "updated" {
		t.Errorf("get returned %v after set, want updated", got)
	}
	if v := s.version(id); v != 1 {
		t.Errorf("version = %d after one write, want 1", v)
	}
}

func TestStoreLimit(t *testing.T) {
	cfg := (&RuntimeConfig{MaxSignals: 2}).withDefaults()
	s := newStore(cfg)

	if _, err := s.create(1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.create(2); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := s.create(3)
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestStoreRemoveFreesCapacity(t *testing.T) {
	cfg := (&RuntimeConfig{MaxSignals: 2}).withDefaults()
	s := newStore(cfg)

	a, _ := s.create(1)
	if _, err := s.create(2); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !s.remove(a) {
		t.Fatal("remove failed")
	}
	if _, err := s.create(3); err != nil {
		t.Errorf("create after remove failed: %v", err)
	}
}

func TestStoreRemoveIdempotent(t *testing.T) {
	s := newStore(DefaultRuntimeConfig())
	id, _ := s.create(1)

	if !s.remove(id) {
		t.Error("first remove returned false")
	}
	if s.remove(id) {
		t.Error("second remove returned true")
	}
	if s.len() != 0 {
		t.Errorf("len = %d after remove, want 0", s.len())
	}
}

func TestStoreUnsubscribeTolerance(t *testing.T) {
	s := newStore(DefaultRuntimeConfig())
	id, _ := s.create(1)
	l := newTestListener()

	// Unsubscribing a listener that was never subscribed is a no-op.
	s.unsubscribe(id, l)

	if err := s.subscribe(id, l); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	s.remove(id)

	// Unsubscribing from a removed entry is a no-op.
	s.unsubscribe(id, l)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := newStore(DefaultRuntimeConfig())
	id, _ := s.create(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.set(id, n*100+j)
				_ = s.get(id)
			}
		}(i)
	}
	wg.Wait()

	if v := s.version(id); v != 800 {
		t.Errorf("version = %d after 800 writes, want 800", v)
	}
}

func TestStoreSubscriberSnapshot(t *testing.T) {
	s := newStore(DefaultRuntimeConfig())
	id, _ := s.create(1)

	l1 := newTestListener()
	l2 := newTestListener()
	s.subscribe(id, l1)
	s.subscribe(id, l2)

	snap := s.subscribers(id)
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d listeners, want 2", len(snap))
	}

	// The snapshot is independent of later mutation.
	s.unsubscribe(id, l1)
	if len(snap) != 2 {
		t.Error("snapshot changed after unsubscribe")
	}
	if s.subscriberCount(id) != 1 {
		t.Errorf("subscriberCount = %d, want 1", s.subscriberCount(id))
	}
}
