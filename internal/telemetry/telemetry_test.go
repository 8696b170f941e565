package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/agentsyard/swarmrt/internal/controlplane"
	"github.com/agentsyard/swarmrt/internal/events"
)

type recordingExporter struct {
	name     string
	cfg      ExporterConfig
	exported []Span
	err      error
}

func (e *recordingExporter) Name() string          { return e.name }
func (e *recordingExporter) Config() ExporterConfig { return e.cfg }
func (e *recordingExporter) Export(span Span) error {
	e.exported = append(e.exported, span)
	return e.err
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordFansOutToMatchingExportersOnly(t *testing.T) {
	old := Now
	defer func() { Now = old }()
	Now = fixedNow(time.Unix(100, 0))

	m := NewManager(nil, nil)
	toolOnly := &recordingExporter{name: "tool-only", cfg: ExporterConfig{LogOnEvents: []events.Kind{events.KindToolExecution}}}
	everything := &recordingExporter{name: "all", cfg: ExporterConfig{}}
	m.Register(toolOnly)
	m.Register(everything)

	span := m.StartSpan("turn", events.KindTurnStart, "")
	m.Record(span)

	if len(toolOnly.exported) != 0 {
		t.Errorf("expected the tool-only exporter to skip a TurnStart span, got %d", len(toolOnly.exported))
	}
	if len(everything.exported) != 1 {
		t.Errorf("expected the nil-filter exporter to receive every span, got %d", len(everything.exported))
	}
}

func TestRecordStampsEndTimeWhenUnset(t *testing.T) {
	old := Now
	defer func() { Now = old }()
	fixed := time.Unix(200, 0)
	Now = fixedNow(fixed)

	m := NewManager(nil, nil)
	exp := &recordingExporter{name: "e"}
	m.Register(exp)

	span := Span{ID: "s1", Name: "x", Kind: events.KindInstruct, StartTime: fixed}
	m.Record(span)

	if !exp.exported[0].EndTime.Equal(fixed) {
		t.Errorf("expected EndTime stamped to now, got %v", exp.exported[0].EndTime)
	}
}

func TestRecordContinuesAfterExporterError(t *testing.T) {
	m := NewManager(nil, nil)
	failing := &recordingExporter{name: "failing", err: errors.New("boom")}
	healthy := &recordingExporter{name: "healthy"}
	m.Register(failing)
	m.Register(healthy)

	m.Record(Span{ID: "s1", Kind: events.KindRunEnd})

	if len(healthy.exported) != 1 {
		t.Error("expected a later exporter to still receive the span after an earlier one errors")
	}
}

func TestRecordEngagesGateOnBreakOnEventsMatch(t *testing.T) {
	gate := controlplane.NewGate(0)
	m := NewManager(nil, gate)
	breaker := &recordingExporter{name: "breaker", cfg: ExporterConfig{BreakOnEvents: []events.Kind{events.KindHandoff}}}
	m.Register(breaker)

	m.Record(Span{ID: "s1", Kind: events.KindHandoff})

	if !gate.Paused() {
		t.Error("expected a BreakOnEvents match to pause the gate")
	}
}

func TestRecordPublishesSpanToGate(t *testing.T) {
	gate := controlplane.NewGate(4)
	m := NewManager(nil, gate)

	m.Record(Span{ID: "s1", Name: "turn", Kind: events.KindTurnStart})

	select {
	case msg := <-gate.Outbound():
		if msg.Kind != controlplane.OutboundSpan || msg.Span.ID != "s1" {
			t.Errorf("expected outbound span s1, got %+v", msg)
		}
	default:
		t.Fatal("expected a span published to the gate's outbound channel")
	}
}
