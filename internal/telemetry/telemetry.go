// Package telemetry fans orchestrator spans out to zero or more
// exporters. Each exporter declares which event kinds it wants logged
// and which should engage the control-plane pause gate, mirroring the
// original source's per-exporter break_on_events/log_on_events filters
// (supplement C.1).
package telemetry

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agentsyard/swarmrt/internal/controlplane"
	"github.com/agentsyard/swarmrt/internal/events"
)

// Span is one completed unit of orchestrator work: an event dispatch, a
// model call, or a tool call.
type Span struct {
	ID         string
	ParentID   string
	Name       string
	Kind       events.Kind
	StartTime  time.Time
	EndTime    time.Time
	Attributes map[string]string
}

// ToWire converts a Span to its control-plane wire representation.
func (s Span) ToWire() controlplane.Span {
	return controlplane.Span{
		ID:         s.ID,
		ParentID:   s.ParentID,
		Name:       s.Name,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Attributes: s.Attributes,
	}
}

// ExporterConfig declares an exporter's event-kind filters. A nil
// LogOnEvents means "export every kind"; BreakOnEvents is the set of
// kinds that, once observed, engage the pause gate.
type ExporterConfig struct {
	LogOnEvents   []events.Kind
	BreakOnEvents []events.Kind
}

func (c ExporterConfig) wantsLog(kind events.Kind) bool {
	if c.LogOnEvents == nil {
		return true
	}
	for _, k := range c.LogOnEvents {
		if k == kind {
			return true
		}
	}
	return false
}

func (c ExporterConfig) wantsBreak(kind events.Kind) bool {
	for _, k := range c.BreakOnEvents {
		if k == kind {
			return true
		}
	}
	return false
}

// Exporter receives completed spans.
type Exporter interface {
	Name() string
	Config() ExporterConfig
	Export(span Span) error
}

// Manager fans spans out to registered exporters and, when an exporter's
// BreakOnEvents matches, engages the control-plane gate.
type Manager struct {
	logger    *slog.Logger
	gate      *controlplane.Gate
	exporters []Exporter
}

// NewManager builds a Manager. gate may be nil, in which case
// BreakOnEvents filters are inert.
func NewManager(logger *slog.Logger, gate *controlplane.Gate) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, gate: gate}
}

func (m *Manager) Register(e Exporter) {
	m.exporters = append(m.exporters, e)
}

// StartSpan returns a Span stamped with a fresh ID and StartTime; callers
// fill in EndTime and call Record once the unit of work completes.
func (m *Manager) StartSpan(name string, kind events.Kind, parentID string) Span {
	return Span{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Name:      name,
		Kind:      kind,
		StartTime: Now(),
	}
}

// Record finalizes a span's EndTime and fans it out to every exporter
// whose filter matches span.Kind. Export errors are logged and do not
// stop the fan-out to other exporters — exporter failures must never
// perturb the orchestration loop.
func (m *Manager) Record(span Span) {
	if span.EndTime.IsZero() {
		span.EndTime = Now()
	}
	if m.gate != nil {
		m.gate.PublishSpan(span.ToWire())
	}
	for _, e := range m.exporters {
		cfg := e.Config()
		if cfg.wantsLog(span.Kind) {
			if err := e.Export(span); err != nil {
				m.logger.Warn("telemetry: exporter failed, skipping", "exporter", e.Name(), "error", err)
			}
		}
		if cfg.wantsBreak(span.Kind) && m.gate != nil {
			m.gate.SetPaused(true)
		}
	}
}

// Now is overridable in tests to avoid depending on wall-clock time.
var Now = time.Now
