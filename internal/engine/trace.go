package engine

import (
	"sync"

	"waterflow/internal/waternet"
)

// =============================================================================
// Trace Recording
// =============================================================================

// EventKind classifies trace events emitted by the algorithms.
type EventKind string

const (
	// EventAugment is emitted when an augmenting path is pushed.
	EventAugment EventKind = "augment"
	// EventPhase is emitted at each level-graph phase boundary.
	EventPhase EventKind = "phase"
	// EventPush is emitted for each push operation in preflow-push.
	EventPush EventKind = "push"
	// EventRelabel is emitted for each relabel operation in preflow-push.
	EventRelabel EventKind = "relabel"
)

// Event is one step of an algorithm's execution.
//
// Seq is a run-local sequence number assigned by the engine in emission
// order; it restarts at zero for every run.
type Event struct {
	Seq       int              `json:"seq"`
	Kind      EventKind        `json:"kind"`
	Algorithm waternet.Variant `json:"algorithm"`
	Iteration int              `json:"iteration"`
	Nodes     []string         `json:"nodes,omitempty"`
	Amount    float64          `json:"amount,omitempty"`
	Height    int              `json:"height,omitempty"`
}

// Recorder receives trace events during a run.
//
// Recording is a pure side channel: a run with a recorder attached produces
// exactly the same flow as one without. Implementations must tolerate being
// called from a single goroutine per run, possibly many runs at once.
type Recorder interface {
	Record(event Event)
}

// NopRecorder discards all events. It is the default recorder.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(Event) {}

// MemoryRecorder accumulates events in order of emission.
//
// Safe for concurrent use so a single recorder can serve batched runs,
// though events from different runs will interleave.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event

	// Limit caps the number of retained events; zero means unlimited.
	Limit int
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Limit > 0 && len(m.events) >= m.Limit {
		return
	}
	m.events = append(m.events, event)
}

// Events returns a snapshot of the recorded events.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of recorded events.
func (m *MemoryRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Reset discards all recorded events.
func (m *MemoryRecorder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}

// tracer wraps a Recorder with run-local sequence numbering.
// A nil tracer (or one with a nil recorder) records nothing.
type tracer struct {
	recorder  Recorder
	algorithm waternet.Variant
	seq       int
}

func newTracer(recorder Recorder, algorithm waternet.Variant) *tracer {
	if recorder == nil {
		return nil
	}
	if _, nop := recorder.(NopRecorder); nop {
		return nil
	}
	return &tracer{recorder: recorder, algorithm: algorithm}
}

func (t *tracer) record(event Event) {
	if t == nil {
		return
	}
	event.Seq = t.seq
	event.Algorithm = t.algorithm
	t.seq++
	t.recorder.Record(event)
}
