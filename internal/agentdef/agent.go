// Package agentdef defines the immutable Agent description: its name,
// instructions, tools, provider configurations, and tool-choice policy.
package agentdef

import (
	"fmt"

	"github.com/agentsyard/swarmrt/internal/providers"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// ToolChoice is the agent's policy for whether/which tool the model must
// call: "auto" lets the model decide, "none" disables tool calling for the
// turn, "required" forces some tool call, and any other value names a
// specific tool the model must call.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// Named reports whether the choice names a specific tool rather than using
// one of the three reserved policies.
func (c ToolChoice) Named() (string, bool) {
	switch c {
	case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired, "":
		return "", false
	default:
		return string(c), true
	}
}

// InstructionFunc produces an agent's system prompt from the run's current
// context variables. It must be pure: called once per turn, its result is
// cached on the run-context for that turn, and it must not mutate its
// input.
type InstructionFunc func(contextVariables map[string]any) (string, error)

// Instructions is a Static(string) | Dynamic(InstructionFunc) sum, matching
// the source's "instruction producer" concept (either a fixed string or a
// closure over context variables).
type Instructions struct {
	static string
	fn     InstructionFunc
}

// Static builds a fixed instructions value.
func Static(s string) Instructions { return Instructions{static: s} }

// Dynamic builds an instructions value backed by a pure function of the
// run's context variables.
func Dynamic(fn InstructionFunc) Instructions { return Instructions{fn: fn} }

// Resolve materialises the instructions string for the current turn.
func (i Instructions) Resolve(contextVariables map[string]any) (string, error) {
	if i.fn != nil {
		return i.fn(contextVariables)
	}
	return i.static, nil
}

// IsDynamic reports whether the instructions are backed by a function.
func (i Instructions) IsDynamic() bool { return i.fn != nil }

// Tool is the implementation reference behind a models.ToolDescriptor: the
// callable the invoker dispatches to once a model's tool call has been
// resolved by name.
type Tool interface {
	Descriptor() models.ToolDescriptor
	// Invoke executes the tool with decoded arguments (contextVariables
	// already stripped out and passed separately) and returns a plain
	// value or an *InvocationResult for structured (value/patch/handoff)
	// returns. See internal/toolinvoker for the normalisation rules.
	Invoke(args map[string]any, contextVariables map[string]any) (any, error)
}

// InvocationResult is the structured return shape a tool may produce:
// a value to stringify into the tool message, a context-variable patch to
// merge into the run, and an optional handoff target agent name.
type InvocationResult struct {
	Value            any
	ContextVariables map[string]any
	Agent            string
}

// Agent is an immutable participant in a run: stable name, instructions,
// an ordered tool list, provider configurations, and a tool-choice policy.
// Agents are reference-equal by Name within a run (two Agent values with
// the same Name are treated as the same participant).
type Agent struct {
	Name             string
	Instructions     Instructions
	Tools            []Tool
	ProviderConfigs  []providers.Config
	ToolChoice       ToolChoice
	ParallelToolCalls bool
}

// ToolByName resolves one of the agent's tools by its descriptor name.
func (a *Agent) ToolByName(name string) (Tool, bool) {
	for _, t := range a.Tools {
		if t.Descriptor().Name == name {
			return t, true
		}
	}
	return nil, false
}

// Descriptors returns the agent's tool descriptors in declared order, the
// shape serialised to the model.
func (a *Agent) Descriptors() []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(a.Tools))
	for _, t := range a.Tools {
		out = append(out, t.Descriptor())
	}
	return out
}

// Validate checks the structural invariants a ConfigError would catch
// before a run starts: a non-empty name, no duplicate tool names, and a
// named tool-choice that actually resolves against the agent's tools.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agentdef: agent name must not be empty")
	}
	seen := make(map[string]bool, len(a.Tools))
	for _, t := range a.Tools {
		descriptor := t.Descriptor()
		name := descriptor.Name
		if seen[name] {
			return fmt.Errorf("agentdef: agent %q declares duplicate tool %q", a.Name, name)
		}
		seen[name] = true
		for _, p := range descriptor.Parameters {
			// Mirrors toolinvoker.ReservedContextVariablesKey; duplicated here
			// rather than imported to avoid agentdef depending on toolinvoker.
			if p.Name == "contextVariables" {
				return fmt.Errorf("agentdef: agent %q tool %q declares reserved parameter %q", a.Name, name, "contextVariables")
			}
		}
	}
	if named, ok := a.ToolChoice.Named(); ok {
		if _, ok := a.ToolByName(named); !ok {
			return fmt.Errorf("agentdef: agent %q tool_choice names unknown tool %q", a.Name, named)
		}
	}
	return nil
}
