// Package tooling holds helpers that sit above a bare models.ToolDescriptor:
// schema validation before a tool is registered with an agent, and a
// reusable handoff-tool constructor matching the original source's
// agents/impl/handoff_agent.py pattern (spec's S3 scenario).
package tooling

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// ValidateAgent compiles every tool descriptor an agent declares. Intended
// to run once at registration time, alongside agentdef.Agent.Validate.
func ValidateAgent(agent *agentdef.Agent) error {
	for _, t := range agent.Tools {
		if err := ValidateDescriptor(t.Descriptor()); err != nil {
			return fmt.Errorf("tooling: agent %q: %w", agent.Name, err)
		}
	}
	return nil
}

// ValidateDescriptor compiles a tool descriptor's rendered JSON Schema to
// catch malformed parameter definitions before the model ever sees them
// — a ConfigError caught at registration time rather than at the first
// failed model call.
func ValidateDescriptor(d models.ToolDescriptor) error {
	compiler := jsonschema.NewCompiler()
	resource := d.Name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(d.JSONSchema())); err != nil {
		return fmt.Errorf("tooling: tool %q: add schema resource: %w", d.Name, err)
	}
	if _, err := compiler.Compile(resource); err != nil {
		return fmt.Errorf("tooling: tool %q: invalid parameter schema: %w", d.Name, err)
	}
	return nil
}
