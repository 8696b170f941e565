package controlplane

import (
	"encoding/json"
	"testing"
)

func TestOutboundMessageRoundTrip(t *testing.T) {
	msg := OutboundMessage{Kind: OutboundBreakStatus, BreakStatus: &BreakStatus{Paused: true}}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got OutboundMessage
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != OutboundBreakStatus || got.BreakStatus == nil || !got.BreakStatus.Paused {
		t.Errorf("expected round-tripped break_status message, got %+v", got)
	}
	if got.Span != nil || got.StreamChunk != nil || got.ChatStatus != nil {
		t.Errorf("expected only the selected payload field to be set, got %+v", got)
	}
}

func TestInboundMessageRoundTrip(t *testing.T) {
	msg := InboundMessage{Kind: InboundSetStep, Step: 3}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got InboundMessage
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != InboundSetStep || got.Step != 3 {
		t.Errorf("expected round-tripped set_step message, got %+v", got)
	}
}
