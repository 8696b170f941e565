// Package toolinvoker implements the tool registry & invoker (C1): it
// resolves model-emitted tool calls against an agent's tool list, decodes
// arguments, executes tools (optionally in parallel on a bounded worker
// pool), and reduces the results into history-ready tool messages plus a
// merged context-variable patch and handoff target.
//
// The bounded worker-pool shape (a buffered channel used as a semaphore,
// a sync.WaitGroup, order-preserving results indexed by position) is
// grounded on the teacher's internal/agent/executor.go Executor.ExecuteAll.
package toolinvoker

import (
	"encoding/json"
	"sync"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// ReservedContextVariablesKey is the argument name reserved for automatic
// injection of the run-context's variables; tools must not declare it in
// their parameter schema, and the invoker strips it from decoded model
// arguments before invocation (spec §4.4 step c, §6).
const ReservedContextVariablesKey = "contextVariables"

// Invoker executes a tool-call batch against one agent.
type Invoker struct {
	maxConcurrency int
}

// New builds an Invoker whose parallel path runs at most maxConcurrency
// tools at once. maxConcurrency <= 0 defaults to 8.
func New(maxConcurrency int) *Invoker {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Invoker{maxConcurrency: maxConcurrency}
}

// Result is the reduced outcome of one tool-call batch: ordered tool
// messages ready to append to history, the merged context-variable patch,
// and the handoff target (empty if none).
type Result struct {
	Messages             []models.Message
	ContextVariables     map[string]any
	HandoffTarget        string
	HandoffSourceCallID  string
}

// Invoke resolves, decodes, executes, and reduces one tool-call batch
// against agent. If agent.ParallelToolCalls is true, invocations run
// concurrently; regardless, the returned messages are always in the
// model's declared call order (invariant 3), and variable merges apply
// left-to-right in that same order to keep the fold deterministic.
func (inv *Invoker) Invoke(agent *agentdef.Agent, calls []models.ToolCall, contextVariables map[string]any) Result {
	outcomes := make([]outcome, len(calls))

	if agent.ParallelToolCalls && len(calls) > 1 {
		inv.runParallel(agent, calls, contextVariables, outcomes)
	} else {
		for i, call := range calls {
			outcomes[i] = inv.runOne(agent, call, contextVariables)
		}
	}

	return reduce(outcomes)
}

type outcome struct {
	message          models.Message
	contextVariables map[string]any
	agent            string
}

func (inv *Invoker) runParallel(agent *agentdef.Agent, calls []models.ToolCall, contextVariables map[string]any, outcomes []outcome) {
	sem := make(chan struct{}, inv.maxConcurrency)
	var wg sync.WaitGroup

	for i, call := range calls {
		i, call := i, call
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = inv.runOne(agent, call, contextVariables)
		}()
	}
	wg.Wait()
}

func (inv *Invoker) runOne(agent *agentdef.Agent, call models.ToolCall, contextVariables map[string]any) outcome {
	tool, ok := agent.ToolByName(call.Name)
	if !ok {
		return outcome{message: models.NewToolMessage(call.ID, "tool not found: "+call.Name, true)}
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		args = map[string]any{"input": call.Arguments}
	}
	delete(args, ReservedContextVariablesKey)

	value, err := safeInvoke(tool, args, contextVariables)
	if err != nil {
		return outcome{message: models.NewToolMessage(call.ID, err.Error(), true)}
	}

	return normalise(call.ID, value)
}

// decodeArguments parses the model's raw argument string as a JSON
// object. Per §4.4 step b, a parse failure does not error out the call —
// its caller, runOne, wraps the raw string under "input" instead.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// safeInvoke recovers a tool panic into a ToolExecError-equivalent so a
// single misbehaving tool cannot take the orchestrator down with it.
func safeInvoke(tool agentdef.Tool, args, contextVariables map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Tool: tool.Descriptor().Name, Recovered: r}
		}
	}()
	return tool.Invoke(args, contextVariables)
}

// normalise applies the plain-value vs structured-result rule from §4.4
// step e.
func normalise(callID string, value any) outcome {
	if structured, ok := value.(agentdef.InvocationResult); ok {
		return outcome{
			message:          models.NewToolMessage(callID, stringify(structured.Value), false),
			contextVariables: structured.ContextVariables,
			agent:            structured.Agent,
		}
	}
	if p, ok := value.(*agentdef.InvocationResult); ok && p != nil {
		return outcome{
			message:          models.NewToolMessage(callID, stringify(p.Value), false),
			contextVariables: p.ContextVariables,
			agent:            p.Agent,
		}
	}
	return outcome{message: models.NewToolMessage(callID, stringify(value), false)}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case error:
		return s.Error()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// reduce folds the per-call outcomes, re-ordered to the model's declared
// call order, into a Result: the final handoff target is the last
// non-empty agent field across the batch (spec §9's explicit tie-break
// resolution — "last non-null wins in declared order"); context-variable
// merges apply left-to-right across the same order.
func reduce(outcomes []outcome) Result {
	res := Result{
		Messages:         make([]models.Message, len(outcomes)),
		ContextVariables: map[string]any{},
	}
	for i, o := range outcomes {
		res.Messages[i] = o.message
		for k, v := range o.contextVariables {
			res.ContextVariables[k] = v
		}
		if o.agent != "" {
			res.HandoffTarget = o.agent
			res.HandoffSourceCallID = o.message.ToolCallID
		}
	}
	return res
}

// PanicError wraps a recovered tool panic.
type PanicError struct {
	Tool      string
	Recovered any
}

func (e *PanicError) Error() string {
	return "tool panicked: " + e.Tool
}
