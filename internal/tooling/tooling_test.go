package tooling

import (
	"testing"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

type validTool struct{}

func (validTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name: "search",
		Parameters: []models.ToolParameter{
			{Name: "query", Type: "string", Required: true},
		},
	}
}

func (validTool) Invoke(args, _ map[string]any) (any, error) { return "ok", nil }

type malformedSchemaTool struct{}

func (malformedSchemaTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name: "broken",
		Parameters: []models.ToolParameter{
			{Name: "x", Type: "not-a-real-json-schema-type"},
		},
	}
}

func (malformedSchemaTool) Invoke(args, _ map[string]any) (any, error) { return nil, nil }

func TestValidateDescriptorAcceptsWellFormedSchema(t *testing.T) {
	if err := ValidateDescriptor(validTool{}.Descriptor()); err != nil {
		t.Errorf("expected a well-formed descriptor to validate, got %v", err)
	}
}

func TestValidateDescriptorRejectsMalformedType(t *testing.T) {
	if err := ValidateDescriptor(malformedSchemaTool{}.Descriptor()); err == nil {
		t.Error("expected an invalid JSON-Schema type to fail compilation")
	}
}

func TestValidateAgentChecksEveryTool(t *testing.T) {
	agent := &agentdef.Agent{Name: "a", Tools: []agentdef.Tool{validTool{}, malformedSchemaTool{}}}
	if err := ValidateAgent(agent); err == nil {
		t.Error("expected ValidateAgent to surface the malformed tool's error")
	}
}

func TestHandoffToolInvokeSuccess(t *testing.T) {
	tool := NewHandoffTool("transfer", "hand off to another agent")
	result, err := tool.Invoke(map[string]any{"to": "billing"}, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	inv, ok := result.(agentdef.InvocationResult)
	if !ok {
		t.Fatalf("expected agentdef.InvocationResult, got %T", result)
	}
	if inv.Agent != "billing" || inv.Value != "ok" {
		t.Errorf("unexpected result: %+v", inv)
	}
}

func TestHandoffToolInvokeMissingTarget(t *testing.T) {
	tool := NewHandoffTool("transfer", "hand off")
	if _, err := tool.Invoke(map[string]any{}, nil); err == nil {
		t.Error("expected an error when 'to' is missing")
	}
}

func TestHandoffToolInvokeRejectsDisallowedTarget(t *testing.T) {
	tool := NewHandoffTool("transfer", "hand off", "billing", "support")
	if _, err := tool.Invoke(map[string]any{"to": "sales"}, nil); err == nil {
		t.Error("expected an error for a target outside the allowed list")
	}
	if _, err := tool.Invoke(map[string]any{"to": "billing"}, nil); err != nil {
		t.Errorf("expected an allowed target to succeed, got %v", err)
	}
}

func TestHandoffToolDescriptorDeclaresRequiredTo(t *testing.T) {
	d := NewHandoffTool("transfer", "desc").Descriptor()
	if len(d.Parameters) != 1 || d.Parameters[0].Name != "to" || !d.Parameters[0].Required {
		t.Errorf("expected a single required 'to' parameter, got %+v", d.Parameters)
	}
}
