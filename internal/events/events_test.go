package events

import (
	"testing"

	"github.com/agentsyard/swarmrt/internal/runcontext"
)

func TestContextPatchMergeLaterOverridesEarlier(t *testing.T) {
	p := &ContextPatch{ContextVariables: map[string]any{"x": 1, "y": 2}}
	p.Merge(&ContextPatch{ContextVariables: map[string]any{"x": 99}})

	if p.ContextVariables["x"] != 99 {
		t.Errorf("expected x to be overridden to 99, got %v", p.ContextVariables["x"])
	}
	if p.ContextVariables["y"] != 2 {
		t.Errorf("expected y to remain 2, got %v", p.ContextVariables["y"])
	}
}

func TestContextPatchMergeNilIsNoop(t *testing.T) {
	p := &ContextPatch{NextAgent: "worker"}
	p.Merge(nil)
	if p.NextAgent != "worker" {
		t.Errorf("expected NextAgent unchanged, got %q", p.NextAgent)
	}
}

func TestContextPatchMergeTerminateSticky(t *testing.T) {
	p := &ContextPatch{}
	p.Merge(&ContextPatch{Terminate: true, TerminateReason: runcontext.TerminationExplicit})
	p.Merge(&ContextPatch{}) // a later empty patch must not clear Terminate
	if !p.Terminate {
		t.Error("expected Terminate to remain true once set")
	}
	if p.TerminateReason != runcontext.TerminationExplicit {
		t.Errorf("expected reason to remain explicit, got %q", p.TerminateReason)
	}
}

func TestAllKindsFireOrder(t *testing.T) {
	if len(AllKinds) != 9 {
		t.Fatalf("expected 9 event kinds, got %d", len(AllKinds))
	}
	if AllKinds[0] != KindRunStart || AllKinds[len(AllKinds)-1] != KindRunEnd {
		t.Errorf("expected RunStart first and RunEnd last, got %v", AllKinds)
	}
}
