package providers

import (
	"sync"
	"time"

	"github.com/agentsyard/swarmrt/internal/events"
)

// DebugSnapshot is one recorded observation of a RunContext at an event.
type DebugSnapshot struct {
	Kind      events.Kind
	Turn      int
	Agent     string
	Timestamp time.Time
	Variables map[string]any
}

// Debug is a scoped provider that records a ring buffer of context
// snapshots at every event it is fired for, for later control-plane
// inspection/replay. Supplemented from the original source's debug
// provider tests (schwarm `tests/test_debug_provider.py`).
type Debug struct {
	cfg       Config
	mu        sync.Mutex
	capacity  int
	snapshots []DebugSnapshot
}

// NewDebug builds a Debug provider. Fields["capacity"] (float64, JSON
// numbers decode to float64) bounds the ring buffer; 0 means unbounded.
func NewDebug(cfg Config) (Provider, error) {
	capacity := 0
	if raw, ok := cfg.Fields["capacity"].(float64); ok {
		capacity = int(raw)
	}
	return &Debug{cfg: cfg, capacity: capacity}, nil
}

func (d *Debug) Config() Config { return d.cfg }

func (d *Debug) SubscribedEvents() []events.Kind {
	return events.AllKinds
}

func (d *Debug) Handle(ev *events.Event) (*events.ContextPatch, error) {
	snap := DebugSnapshot{
		Kind:      ev.Kind,
		Timestamp: ev.Timestamp,
	}
	if ev.Context != nil {
		snap.Turn = ev.Context.Turn()
		snap.Agent = ev.Context.CurrentAgent()
		snap.Variables = ev.Context.Variables()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots = append(d.snapshots, snap)
	if d.capacity > 0 && len(d.snapshots) > d.capacity {
		d.snapshots = d.snapshots[len(d.snapshots)-d.capacity:]
	}
	return nil, nil
}

// Snapshots returns a copy of the recorded snapshots in recording order.
func (d *Debug) Snapshots() []DebugSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DebugSnapshot, len(d.snapshots))
	copy(out, d.snapshots)
	return out
}
