package filament

import (
	"log/slog"
	"sync"
)

// EffectPriority orders effect execution within one flush. Higher priorities
// drain first; effects of equal priority run in scheduling order.
type EffectPriority uint8

const (
	// PriorityLow suits logging, analytics, and other deferrable work.
	PriorityLow EffectPriority = iota
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh suits consumers that mark state stale for rebuilding.
	PriorityHigh
	// PriorityCritical suits error handlers.
	PriorityCritical

	numPriorities = 4
)

func (p EffectPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// scheduler queues effects marked dirty during a flush. Deduplication
// happens at the effect (its pending flag), so the queue never holds the
// same effect twice.
type scheduler struct {
	mu     sync.Mutex
	queues [numPriorities][]*Effect
	total  int
	logger *slog.Logger
}

func newScheduler(logger *slog.Logger) *scheduler {
	return &scheduler{logger: logger}
}

func (s *scheduler) schedule(e *Effect) {
	s.mu.Lock()
	s.queues[e.priority] = append(s.queues[e.priority], e)
	s.total++
	n := s.total
	s.mu.Unlock()

	if n == maxPendingEffects {
		s.logger.Warn("pending effect queue reached high-water mark",
			"pending", n,
			"limit", maxPendingEffects)
	}
}

// pop returns the next effect to run: highest priority first, FIFO within a
// priority. Returns nil when the queue is empty.
func (s *scheduler) pop() *Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := int(PriorityCritical); p >= int(PriorityLow); p-- {
		q := s.queues[p]
		if len(q) == 0 {
			continue
		}
		e := q[0]
		s.queues[p] = q[1:]
		s.total--
		return e
	}
	return nil
}

func (s *scheduler) pendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
