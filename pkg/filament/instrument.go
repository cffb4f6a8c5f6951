package filament

import "time"

// Instrumentation receives runtime events for metrics and tracing. All
// methods are called synchronously on hot paths and must be cheap.
type Instrumentation interface {
	// SignalCreated is called after a signal is allocated.
	SignalCreated()

	// SignalWritten is called after a signal's value is replaced.
	SignalWritten()

	// SignalReleased is called after a signal's storage is reclaimed.
	SignalReleased()

	// BatchFlushed is called once per flush per runtime with the number of
	// distinct signals notified and the total flush duration.
	BatchFlushed(signals int, elapsed time.Duration)

	// EffectRan is called after an effect body completes.
	EffectRan(elapsed time.Duration)

	// ComputedRecomputed is called after a computed value recomputes.
	ComputedRecomputed(elapsed time.Duration)

	// LockTimedOut is called when a bounded lock acquisition fails.
	LockTimedOut(resource string)
}

type nopInstrumentation struct{}

func (nopInstrumentation) SignalCreated()                   {}
func (nopInstrumentation) SignalWritten()                   {}
func (nopInstrumentation) SignalReleased()                  {}
func (nopInstrumentation) BatchFlushed(int, time.Duration)  {}
func (nopInstrumentation) EffectRan(time.Duration)          {}
func (nopInstrumentation) ComputedRecomputed(time.Duration) {}
func (nopInstrumentation) LockTimedOut(string)              {}

// ComposeInstrumentation fans events out to several instrumentations, e.g.
// metrics and tracing together.
func ComposeInstrumentation(ins ...Instrumentation) Instrumentation {
	return multiInstrumentation(ins)
}

type multiInstrumentation []Instrumentation

func (m multiInstrumentation) SignalCreated() {
	for _, in := range m {
		in.SignalCreated()
	}
}

func (m multiInstrumentation) SignalWritten() {
	for _, in := range m {
		in.SignalWritten()
	}
}

func (m multiInstrumentation) SignalReleased() {
	for _, in := range m {
		in.SignalReleased()
	}
}

func (m multiInstrumentation) BatchFlushed(signals int, elapsed time.Duration) {
	for _, in := range m {
		in.BatchFlushed(signals, elapsed)
	}
}

func (m multiInstrumentation) EffectRan(elapsed time.Duration) {
	for _, in := range m {
		in.EffectRan(elapsed)
	}
}

func (m multiInstrumentation) ComputedRecomputed(elapsed time.Duration) {
	for _, in := range m {
		in.ComputedRecomputed(elapsed)
	}
}

func (m multiInstrumentation) LockTimedOut(resource string) {
	for _, in := range m {
		in.LockTimedOut(resource)
	}
}
