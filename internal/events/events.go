// Package events types the orchestrator's lifecycle events (C4) and the
// context patch a provider handler may return from one.
package events

import (
	"time"

	"github.com/agentsyard/swarmrt/internal/runcontext"
)

// Kind identifies a lifecycle event fired during a run. The set is
// exhaustive (spec §4.3): nine kinds fired in a fixed order per turn.
type Kind string

const (
	KindRunStart              Kind = "RunStart"
	KindTurnStart             Kind = "TurnStart"
	KindInstruct              Kind = "Instruct"
	KindMessageCompletion     Kind = "MessageCompletion"
	KindPostMessageCompletion Kind = "PostMessageCompletion"
	KindToolExecution         Kind = "ToolExecution"
	KindPostToolExecution     Kind = "PostToolExecution"
	KindHandoff               Kind = "Handoff"
	KindRunEnd                Kind = "RunEnd"
)

// AllKinds lists every event kind in fire order within one turn (RunStart
// and RunEnd are the exceptions, fired once outside the per-turn cycle).
var AllKinds = []Kind{
	KindRunStart,
	KindTurnStart,
	KindInstruct,
	KindMessageCompletion,
	KindPostMessageCompletion,
	KindToolExecution,
	KindPostToolExecution,
	KindHandoff,
	KindRunEnd,
}

// Event carries a reference to the current run-context (never a copy —
// providers observe live state) plus the timestamp it was fired at.
type Event struct {
	Kind      Kind
	RunID     string
	Context   *runcontext.RunContext
	Timestamp time.Time

	// ToolCalls is populated for ToolExecution/PostToolExecution.
	ToolCalls []ToolCallRef
}

// ToolCallRef is a lightweight reference to a tool call carried on
// ToolExecution/PostToolExecution events, enough for a provider to inspect
// arguments without mutating the invoker's own state.
type ToolCallRef struct {
	ID        string
	Name      string
	Arguments string
}

// ContextPatch is what a provider handler may return from Handle: a
// partial update to context variables, a handoff directive, and/or a
// request to terminate the run. Patches merge in dispatch order — later
// patches overwrite earlier fields of the same name (§4.3).
type ContextPatch struct {
	ContextVariables map[string]any
	NextAgent        string
	Terminate        bool
	TerminateReason  runcontext.TerminationReason
}

// Merge folds other into p, with other's fields winning on conflict. This
// implements the "later patches override earlier fields of the same name"
// rule for both the flat directive fields and the ContextVariables map.
func (p *ContextPatch) Merge(other *ContextPatch) {
	if other == nil {
		return
	}
	if len(other.ContextVariables) > 0 {
		if p.ContextVariables == nil {
			p.ContextVariables = make(map[string]any, len(other.ContextVariables))
		}
		for k, v := range other.ContextVariables {
			p.ContextVariables[k] = v
		}
	}
	if other.NextAgent != "" {
		p.NextAgent = other.NextAgent
	}
	if other.Terminate {
		p.Terminate = true
		if other.TerminateReason != "" {
			p.TerminateReason = other.TerminateReason
		}
	}
}
