// Package progress carries advisory progress notifications from the
// measurement engine to whoever is watching a run.
package progress

import (
	"sync"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/stats"
)

// Kind identifies a progress event.
type Kind string

const (
	KindRunStarted      Kind = "run_started"
	KindWorkloadStarted Kind = "workload_started"
	KindRuntimeStarted  Kind = "runtime_started"
	KindWarmupFinished  Kind = "warmup_finished"
	KindTrialFinished   Kind = "trial_finished"
	KindCellFinished    Kind = "cell_finished"
	KindRunFinished     Kind = "run_finished"
)

// Event is a single progress notification. Fields not relevant to the Kind
// are left zero.
type Event struct {
	Kind     Kind
	Workload string
	Runtime  string
	// Index is 1-based within Total for warmup and trial events.
	Index    int
	Total    int
	Duration time.Duration
	ExitCode int
	TimedOut bool
	Cell     *stats.CellStatistics
	Err      error
}

// Passed reports whether the process behind a warmup or trial event exited
// cleanly.
func (e Event) Passed() bool {
	return e.ExitCode == 0 && !e.TimedOut
}

// Observer receives progress events. Implementations must not block for
// long since events are delivered on the measuring goroutine.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Nop returns an observer that discards every event.
func Nop() Observer {
	return ObserverFunc(func(Event) {})
}

// WithCell returns an observer that stamps the workload and runtime names
// on every event before forwarding it to next.
func WithCell(next Observer, workload, runtime string) Observer {
	if next == nil {
		next = Nop()
	}

	return ObserverFunc(func(ev Event) {
		if ev.Workload == "" {
			ev.Workload = workload
		}

		if ev.Runtime == "" {
			ev.Runtime = runtime
		}

		next.Observe(ev)
	})
}

// Multi fans events out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(ev Event) {
		for _, o := range observers {
			if o != nil {
				o.Observe(ev)
			}
		}
	})
}

// Recorder stores every observed event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe implements Observer.
func (r *Recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// OfKind returns the recorded events of the given kind.
func (r *Recorder) OfKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0, len(r.events))

	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}
