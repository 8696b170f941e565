package tooling

import (
	"fmt"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// HandoffTool is a tool whose only effect is transferring control to
// another agent, matching the original source's handoff_agent.py: a
// `transfer(to)` tool returning `{value: "ok", agent: to}`.
type HandoffTool struct {
	name        string
	description string
	allowed     map[string]bool // empty means any target is allowed
}

// NewHandoffTool builds a handoff tool named name. If allowedTargets is
// non-empty, Invoke rejects any "to" argument not in that set with a
// plain error (surfaced by the invoker as a ToolExecError tool message,
// not a HandoffError — the name never reaches the orchestrator's handoff
// step at all).
func NewHandoffTool(name, description string, allowedTargets ...string) *HandoffTool {
	var allowed map[string]bool
	if len(allowedTargets) > 0 {
		allowed = make(map[string]bool, len(allowedTargets))
		for _, t := range allowedTargets {
			allowed[t] = true
		}
	}
	return &HandoffTool{name: name, description: description, allowed: allowed}
}

func (h *HandoffTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        h.name,
		Description: h.description,
		Parameters: []models.ToolParameter{
			{Name: "to", Type: "string", Description: "name of the agent to transfer control to", Required: true},
		},
	}
}

func (h *HandoffTool) Invoke(args map[string]any, _ map[string]any) (any, error) {
	to, ok := args["to"].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("handoff tool %q: missing required argument %q", h.name, "to")
	}
	if h.allowed != nil && !h.allowed[to] {
		return nil, fmt.Errorf("handoff tool %q: target agent %q is not in the allowed list", h.name, to)
	}
	return agentdef.InvocationResult{Value: "ok", Agent: to}, nil
}
