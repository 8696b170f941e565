// Package orchestrator implements the turn-scheduling engine (C6): the
// single entry point that drives one run of the loop described in
// spec §4.1 — materialise instructions, call the model, dispatch
// lifecycle events, execute tool calls, apply handoffs, and enforce the
// turn budget and pause gate.
//
// The turn state machine (materialise -> call model -> execute tools ->
// handoff or terminate) is grounded on the teacher's
// internal/agent/loop.go AgenticLoop.Run; the pause/breakpoint mechanics
// and cumulative available-agent/tool tracking are grounded on the
// original source's core/schwarm.py Schwarm.run / _trigger_event.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/internal/controlplane"
	"github.com/agentsyard/swarmrt/internal/events"
	"github.com/agentsyard/swarmrt/internal/llmadapter"
	"github.com/agentsyard/swarmrt/internal/providermgr"
	"github.com/agentsyard/swarmrt/internal/runcontext"
	"github.com/agentsyard/swarmrt/internal/telemetry"
	"github.com/agentsyard/swarmrt/internal/tooling"
	"github.com/agentsyard/swarmrt/internal/toolinvoker"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// Orchestrator ties together every other component into the runnable
// turn loop. A single Orchestrator can drive any number of runs; the
// per-run mutable state lives entirely in a runcontext.RunContext, never
// here.
type Orchestrator struct {
	logger    *slog.Logger
	agents    map[string]*agentdef.Agent
	manager   *providermgr.Manager
	invoker   *toolinvoker.Invoker
	adapter   llmadapter.Adapter
	gate      *controlplane.Gate // optional; nil disables pause/step/breakpoints
	telemetry *telemetry.Manager // optional; nil disables span recording
}

// New builds an Orchestrator. gate and tel may be nil to run headless
// (no control plane, no telemetry) — useful for tests of the pure turn
// algorithm.
func New(logger *slog.Logger, manager *providermgr.Manager, invoker *toolinvoker.Invoker, adapter llmadapter.Adapter, gate *controlplane.Gate, tel *telemetry.Manager) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:    logger,
		agents:    make(map[string]*agentdef.Agent),
		manager:   manager,
		invoker:   invoker,
		adapter:   adapter,
		gate:      gate,
		telemetry: tel,
	}
}

// RegisterAgent makes an agent available for the loop to consult and for
// tools to hand off to. Returns a ConfigError if the agent fails
// structural validation.
func (o *Orchestrator) RegisterAgent(agent *agentdef.Agent) error {
	if err := agent.Validate(); err != nil {
		return &ConfigError{Agent: agent.Name, Err: err}
	}
	if err := tooling.ValidateAgent(agent); err != nil {
		return &ConfigError{Agent: agent.Name, Err: err}
	}
	o.agents[agent.Name] = agent
	return nil
}

// RunOptions configures one call to Run.
type RunOptions struct {
	StartAgent       string
	InitialMessages  []models.Message
	ContextVariables map[string]any
	MaxTurns         int
	OverrideModel    string
	ExecuteTools     bool
	Timeout          time.Duration
}

// RunResult is what Run returns: the suffix of message history produced
// during the call, the final current agent, the final context
// variables, and why the loop exited.
type RunResult struct {
	Messages          []models.Message
	Agent             string
	ContextVariables  map[string]any
	TerminationReason runcontext.TerminationReason
}

// Run drives the turn loop to completion, implementing §4.1 steps 1-11
// on each iteration.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	agent, ok := o.agents[opts.StartAgent]
	if !ok {
		return RunResult{}, &ConfigError{Agent: opts.StartAgent, Err: fmt.Errorf("unknown start agent")}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	rc := runcontext.New(opts.StartAgent, opts.MaxTurns, opts.ContextVariables)
	rc.NoteTools(toolNames(agent))
	startIndex := rc.Len()
	rc.AppendAll(opts.InitialMessages)

	if err := o.manager.EnsureAgent(o.newEvent(runID, rc, events.KindRunStart, nil), agent.Name, agent.ProviderConfigs); err != nil {
		return RunResult{}, &ConfigError{Agent: agent.Name, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			rc.SetTerminationReason(runcontext.TerminationCancelled)
			break
		}

		if o.gate != nil {
			if err := o.gate.TurnStart(ctx); err != nil {
				rc.SetTerminationReason(runcontext.TerminationCancelled)
				break
			}
		}

		// The turn is now definitively starting: increment unconditionally,
		// once per iteration, regardless of how this iteration eventually
		// exits (model error, no-tool-calls, or full continuation). Matches
		// the original source's unconditional `current_turn += 1` in
		// core/schwarm.py Schwarm.run, and spec §7's "[ModelError] ... the
		// turn still counts".
		turn := rc.IncrementTurn()

		turnSpanStart := telemetryNow()
		agent = o.agents[rc.CurrentAgent()]
		var turnNextAgent string

		// Step 2: TurnStart.
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindTurnStart, nil); na != "" {
			turnNextAgent = na
		}

		// Step 3: materialise instructions.
		instructions, err := agent.Instructions.Resolve(rc.Variables())
		if err != nil {
			rc.SetTerminationReason(runcontext.TerminationExplicit)
			rc.Append(errorMessage(fmt.Sprintf("instructions error: %v", err)))
			break
		}
		rc.CacheInstructions(agent.Name, instructions)

		// Populate last_user_message from live history so the Memory
		// provider's recall query (fired at Instruct, below) reflects the
		// actual conversation rather than whatever was seeded once at Run
		// start.
		if msg, ok := lastUserMessage(rc.History()); ok {
			rc.Patch(map[string]any{"last_user_message": msg})
		}

		// Step 4: Instruct.
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindInstruct, nil); na != "" {
			turnNextAgent = na
		}

		// Step 5: MessageCompletion (last-chance prompt mutation), then the
		// model call itself.
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindMessageCompletion, nil); na != "" {
			turnNextAgent = na
		}

		system, _ := rc.CachedInstructions(agent.Name)
		model := opts.OverrideModel
		req := llmadapter.Request{
			Model:      model,
			System:     system,
			Messages:   rc.History(),
			Tools:      agent.Descriptors(),
			ToolChoice: agent.ToolChoice,
			Parallel:   agent.ParallelToolCalls,
		}

		modelSpanStart := telemetryNow()
		assistantMsg, err := o.callModel(ctx, req)
		o.recordSpan("model.complete", events.KindMessageCompletion, runID, modelSpanStart)
		if err != nil {
			rc.Append(errorMessage(fmt.Sprintf("model error: %v", err)))
			rc.SetTerminationReason(runcontext.TerminationExplicit)
			break
		}

		// Step 6: append assistant message, fire PostMessageCompletion.
		rc.Append(assistantMsg)
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindPostMessageCompletion, nil); na != "" {
			turnNextAgent = na
		}

		// Step 7: termination check A.
		if !assistantMsg.HasToolCalls() || !opts.ExecuteTools {
			rc.SetTerminationReason(runcontext.TerminationNoToolCalls)
			o.recordTurnSpan(runID, turnSpanStart)
			break
		}

		// Step 8: ToolExecution.
		toolRefs := toToolCallRefs(assistantMsg.ToolCalls)
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindToolExecution, toolRefs); na != "" {
			turnNextAgent = na
		}

		toolSpanStart := telemetryNow()
		result := o.invoker.Invoke(agent, assistantMsg.ToolCalls, rc.Variables())
		o.recordSpan("tool.batch", events.KindToolExecution, runID, toolSpanStart)

		// Step 9: append tool messages, apply patch, fire PostToolExecution.
		rc.AppendAll(result.Messages)
		rc.Patch(result.ContextVariables)
		if na := o.fireAndCheckpoint(ctx, runID, rc, events.KindPostToolExecution, toolRefs); na != "" {
			turnNextAgent = na
		}

		// Step 10: handoff. A tool-driven handoff (result.HandoffTarget)
		// takes priority over a provider-driven one (a "nextAgent" directive
		// accumulated from this turn's event patches); the latter only
		// applies when no tool call requested a transfer.
		handoffTarget := result.HandoffTarget
		providerDriven := handoffTarget == ""
		if providerDriven {
			handoffTarget = turnNextAgent
		}
		if handoffTarget != "" {
			if target, ok := o.agents[handoffTarget]; ok {
				rc.Handoff(handoffTarget)
				rc.NoteTools(toolNames(target))
				if err := o.manager.EnsureAgent(o.newEvent(runID, rc, events.KindRunStart, nil), target.Name, target.ProviderConfigs); err != nil {
					rc.SetTerminationReason(runcontext.TerminationExplicit)
					rc.Append(errorMessage(fmt.Sprintf("config error materialising agent %q: %v", target.Name, err)))
					o.recordTurnSpan(runID, turnSpanStart)
					break
				}
				o.fireAndCheckpoint(ctx, runID, rc, events.KindHandoff, nil)
			} else if providerDriven {
				rc.Append(errorMessage(fmt.Sprintf("handoff error: unknown agent %q", handoffTarget)))
			} else {
				rc.Append(models.NewToolMessage(result.HandoffSourceCallID, fmt.Sprintf("handoff error: unknown agent %q", handoffTarget), true))
			}
		}

		o.recordTurnSpan(runID, turnSpanStart)

		// Step 11: turn budget.
		if o.gate != nil {
			o.gate.TurnEnd()
		}
		if opts.MaxTurns > 0 && turn >= opts.MaxTurns {
			rc.SetTerminationReason(runcontext.TerminationMaxTurns)
			break
		}
	}

	o.manager.FireRunEnd(o.newEvent(runID, rc, events.KindRunEnd, nil))

	return RunResult{
		Messages:          rc.HistorySince(startIndex),
		Agent:             rc.CurrentAgent(),
		ContextVariables:  rc.Variables(),
		TerminationReason: rc.TerminationReason(),
	}, nil
}

// callModel invokes the adapter and drains its chunk stream, forwarding
// incremental text to the control plane (if any) and returning only the
// final aggregated message — streamed chunks never enter history (§9
// "Streaming vs history").
func (o *Orchestrator) callModel(ctx context.Context, req llmadapter.Request) (models.Message, error) {
	chunks, err := o.adapter.Complete(ctx, req)
	if err != nil {
		return models.Message{}, err
	}
	var final models.Message
	for c := range chunks {
		if c.Error != nil {
			return models.Message{}, c.Error
		}
		if c.Text != "" && o.gate != nil {
			o.gate.PublishStreamChunk(controlplane.StreamAssistant, c.Text)
		}
		if c.Done && c.Message != nil {
			final = *c.Message
		}
	}
	return final, nil
}

// fireAndCheckpoint dispatches an event through the provider manager,
// applies the merged patch to the run-context, and then consults the
// pause gate's second phase (breakpoints) — the post-dispatch half of
// the two-phase break check. It returns the dispatched patch's NextAgent
// (empty if none), so callers can accumulate a provider-driven handoff
// directive across the turn's several dispatches.
func (o *Orchestrator) fireAndCheckpoint(ctx context.Context, runID string, rc *runcontext.RunContext, kind events.Kind, toolCalls []events.ToolCallRef) string {
	ev := o.newEvent(runID, rc, kind, toolCalls)
	patch, err := o.manager.Dispatch(ev)
	var nextAgent string
	if err != nil {
		o.logger.Error("orchestrator: provider dispatch failed", "event", kind, "error", err)
	} else if patch != nil {
		rc.Patch(patch.ContextVariables)
		if patch.Terminate {
			reason := patch.TerminateReason
			if reason == "" {
				reason = runcontext.TerminationExplicit
			}
			rc.SetTerminationReason(reason)
		}
		nextAgent = patch.NextAgent
	}

	if o.gate != nil {
		if err := o.gate.AfterEvent(ctx, kind); err != nil {
			rc.SetTerminationReason(runcontext.TerminationCancelled)
		}
	}
	return nextAgent
}

func (o *Orchestrator) newEvent(runID string, rc *runcontext.RunContext, kind events.Kind, toolCalls []events.ToolCallRef) *events.Event {
	return &events.Event{
		Kind:      kind,
		RunID:     runID,
		Context:   rc,
		Timestamp: runcontext.Now(),
		ToolCalls: toolCalls,
	}
}

func (o *Orchestrator) recordSpan(name string, kind events.Kind, runID string, start time.Time) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.Record(telemetry.Span{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		StartTime: start,
		EndTime:   telemetryNow(),
		Attributes: map[string]string{
			"run_id": runID,
		},
	})
}

func (o *Orchestrator) recordTurnSpan(runID string, start time.Time) {
	o.recordSpan("turn", events.KindTurnStart, runID, start)
}

func telemetryNow() time.Time { return runcontext.Now() }

func toolNames(agent *agentdef.Agent) []string {
	names := make([]string, 0, len(agent.Tools))
	for _, t := range agent.Tools {
		names = append(names, t.Descriptor().Name)
	}
	return names
}

func toToolCallRefs(calls []models.ToolCall) []events.ToolCallRef {
	out := make([]events.ToolCallRef, 0, len(calls))
	for _, c := range calls {
		out = append(out, events.ToolCallRef{ID: c.ID, Name: c.Name, Arguments: c.Arguments})
	}
	return out
}

func errorMessage(content string) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: content, IsError: true}
}

// lastUserMessage scans history backward for the most recent user message,
// feeding providers.Memory's recall query (see §C.7) with live conversation
// content rather than a value seeded once at Run start.
func lastUserMessage(history []models.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return history[i].Content, true
		}
	}
	return "", false
}
