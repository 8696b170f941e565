// Package runcontext implements the mutable record threaded through a
// single run: turn counter, message history, context variables, current
// and previous agent, and the sets of agents/tools seen so far.
//
// Exactly one RunContext exists per orchestrator run. It is passed by
// reference to every event and every provider handler; mutation is safe
// because events within a turn are dispatched sequentially (C6 is
// single-threaded with respect to the run). The history vector is exposed
// to providers only through an append-only view (History) — providers may
// read it but the only way to grow it is through the orchestrator's own
// Append, so accidental reordering or truncation by a provider is not
// possible through the exported API.
package runcontext

import (
	"sync"
	"time"

	"github.com/agentsyard/swarmrt/pkg/models"
)

// TerminationReason explains why a run's loop exited.
type TerminationReason string

const (
	TerminationNone        TerminationReason = "none"
	TerminationMaxTurns    TerminationReason = "maxTurns"
	TerminationNoToolCalls TerminationReason = "noToolCalls"
	TerminationExplicit    TerminationReason = "explicit"
	TerminationCancelled   TerminationReason = "cancelled"
)

// RunContext is the mutable record threaded through a run. Fields besides
// ContextVariables and the history vector are owned exclusively by the
// orchestrator; providers read them through the accessor methods (Turn,
// CurrentAgent, History, ...) and mutate only ContextVariables (via Patch).
type RunContext struct {
	mu sync.RWMutex

	turn    int
	maxTurns int

	currentAgent  string
	previousAgent string

	history []models.Message

	contextVariables map[string]any

	availableAgents map[string]bool
	availableTools  map[string]bool

	lastAssistantIndex int // index into history, -1 if none yet

	terminationReason TerminationReason

	cachedInstructions map[string]string // agent name -> materialised instructions for this turn
}

// New creates an empty RunContext for a run starting with startAgent and a
// turn budget of maxTurns.
func New(startAgent string, maxTurns int, contextVariables map[string]any) *RunContext {
	vars := make(map[string]any, len(contextVariables))
	for k, v := range contextVariables {
		vars[k] = v
	}
	rc := &RunContext{
		maxTurns:           maxTurns,
		currentAgent:       startAgent,
		contextVariables:   vars,
		availableAgents:    map[string]bool{startAgent: true},
		availableTools:     map[string]bool{},
		lastAssistantIndex: -1,
		terminationReason:  TerminationNone,
		cachedInstructions: map[string]string{},
	}
	return rc
}

// Turn returns the current turn counter.
func (rc *RunContext) Turn() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.turn
}

// MaxTurns returns the turn budget.
func (rc *RunContext) MaxTurns() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.maxTurns
}

// IncrementTurn advances the turn counter by one. It never decrements;
// callers (the orchestrator only) must call this exactly once per loop
// iteration, unconditionally, as soon as the turn is definitively starting
// (after the pause gate's TurnStart check succeeds) — a turn counts once
// begun regardless of how it later exits, including a model error or a
// no-tool-calls termination.
func (rc *RunContext) IncrementTurn() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.turn++
	return rc.turn
}

// CurrentAgent returns the name of the agent currently in control.
func (rc *RunContext) CurrentAgent() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.currentAgent
}

// PreviousAgent returns the name of the agent that held control before the
// most recent handoff, or "" if none has occurred yet.
func (rc *RunContext) PreviousAgent() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.previousAgent
}

// Handoff changes currentAgent, recording the prior one as previousAgent.
// Per invariant 4, this is only ever called at the handoff boundary (end
// of tool execution, step 10 of the turn algorithm); the change becomes
// visible to every event fired after this call returns.
func (rc *RunContext) Handoff(nextAgent string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.previousAgent = rc.currentAgent
	rc.currentAgent = nextAgent
	rc.availableAgents[nextAgent] = true
}

// NoteAgent records an agent name as having been seen during this run.
// Matches the source's cumulative tracking: availableAgents is never reset
// on handoff, only appended to.
func (rc *RunContext) NoteAgent(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.availableAgents[name] = true
}

// NoteTools records tool names as having been seen during this run.
func (rc *RunContext) NoteTools(names []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, n := range names {
		rc.availableTools[n] = true
	}
}

// AvailableAgents returns a snapshot slice of every agent name seen so far.
func (rc *RunContext) AvailableAgents() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]string, 0, len(rc.availableAgents))
	for a := range rc.availableAgents {
		out = append(out, a)
	}
	return out
}

// AvailableTools returns a snapshot slice of every tool name seen so far.
func (rc *RunContext) AvailableTools() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]string, 0, len(rc.availableTools))
	for t := range rc.availableTools {
		out = append(out, t)
	}
	return out
}

// Get reads one context variable.
func (rc *RunContext) Get(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.contextVariables[key]
	return v, ok
}

// Variables returns a shallow copy of the context variables map, safe for
// a caller to range over without holding the lock.
func (rc *RunContext) Variables() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make(map[string]any, len(rc.contextVariables))
	for k, v := range rc.contextVariables {
		out[k] = v
	}
	return out
}

// Patch merges the given fields into ContextVariables, later callers
// overriding earlier ones for the same key, matching the dispatch-order
// merge rule in §4.3.
func (rc *RunContext) Patch(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for k, v := range patch {
		rc.contextVariables[k] = v
	}
}

// TerminationReason returns the reason the run ended, or TerminationNone
// while still in progress.
func (rc *RunContext) TerminationReason() TerminationReason {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.terminationReason
}

// SetTerminationReason records why the loop is exiting. Once set to
// anything but TerminationNone it is not overwritten.
func (rc *RunContext) SetTerminationReason(reason TerminationReason) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.terminationReason == TerminationNone {
		rc.terminationReason = reason
	}
}

// CacheInstructions stores the materialised instruction string for the
// given agent for the duration of the current turn, per step 3 of §4.1
// ("cache the string on the run-context for the turn").
func (rc *RunContext) CacheInstructions(agent, instructions string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cachedInstructions[agent] = instructions
}

// CachedInstructions returns the instructions cached for agent this turn,
// if any.
func (rc *RunContext) CachedInstructions(agent string) (string, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	s, ok := rc.cachedInstructions[agent]
	return s, ok
}

// Append adds a message to the history. Per invariant 1, the system
// message is never passed here; it is synthesised as model input only.
// Only the orchestrator calls this; the invoker's reduced tool messages
// reach history through the orchestrator's AppendAll.
func (rc *RunContext) Append(msg models.Message) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.history = append(rc.history, msg)
	if msg.Role == models.RoleAssistant {
		rc.lastAssistantIndex = len(rc.history) - 1
	}
}

// AppendAll appends a batch of messages in order, e.g. a tool-call batch
// already folded into declared order by the invoker.
func (rc *RunContext) AppendAll(msgs []models.Message) {
	for _, m := range msgs {
		rc.Append(m)
	}
}

// History returns an append-only view: a copy of the message slice so
// callers cannot truncate or reorder the orchestrator's own backing array.
func (rc *RunContext) History() []models.Message {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]models.Message, len(rc.history))
	copy(out, rc.history)
	return out
}

// HistorySince returns the history starting at the given index, used to
// build a RunResult's message suffix.
func (rc *RunContext) HistorySince(index int) []models.Message {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if index < 0 || index > len(rc.history) {
		index = len(rc.history)
	}
	out := make([]models.Message, len(rc.history)-index)
	copy(out, rc.history[index:])
	return out
}

// Len returns the current history length, usable as a start offset for a
// subsequent HistorySince call.
func (rc *RunContext) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.history)
}

// LastAssistantMessage returns the most recently appended assistant
// message, if any.
func (rc *RunContext) LastAssistantMessage() (models.Message, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.lastAssistantIndex < 0 {
		return models.Message{}, false
	}
	return rc.history[rc.lastAssistantIndex], true
}

// Now is overridable in tests; defaults to time.Now.
var Now = time.Now
