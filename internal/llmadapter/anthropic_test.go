package llmadapter

import (
	"testing"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

func TestToSystemBlocksEmptyIsNil(t *testing.T) {
	if blocks := toSystemBlocks(""); blocks != nil {
		t.Errorf("expected nil system blocks for empty system prompt, got %+v", blocks)
	}
	if blocks := toSystemBlocks("be helpful"); len(blocks) != 1 {
		t.Errorf("expected one system block, got %+v", blocks)
	}
}

func TestToAnthropicMessagesConvertsEachRole(t *testing.T) {
	msgs := []models.Message{
		models.NewUserMessage("hi"),
		{Role: models.RoleAssistant, Content: "hello", ToolCalls: []models.ToolCall{{ID: "c1", Name: "search", Arguments: `{"q":"go"}`}}},
		models.NewToolMessage("c1", "result", false),
	}
	out := toAnthropicMessages(msgs)
	if len(out) != 3 {
		t.Fatalf("expected 3 converted messages, got %d", len(out))
	}
}

func TestToAnthropicToolsWiresJSONSchema(t *testing.T) {
	tools := []models.ToolDescriptor{{
		Name:        "add",
		Description: "adds numbers",
		Parameters: []models.ToolParameter{
			{Name: "a", Type: "number", Required: true},
		},
	}}
	out := toAnthropicTools(tools)
	if len(out) != 1 {
		t.Fatalf("expected 1 converted tool, got %d", len(out))
	}
	if out[0].OfTool == nil {
		t.Fatal("expected OfTool to be populated")
	}
	if out[0].OfTool.Name != "add" {
		t.Errorf("expected tool name add, got %q", out[0].OfTool.Name)
	}
}

func TestToolChoiceParam(t *testing.T) {
	if _, ok := toolChoiceParam(agentdef.ToolChoiceNone, false); !ok {
		t.Error("expected ToolChoiceNone to produce a param")
	}
	if choice, ok := toolChoiceParam(agentdef.ToolChoiceRequired, true); !ok || choice.OfAny == nil {
		t.Error("expected ToolChoiceRequired to produce an OfAny param")
	}
	if choice, ok := toolChoiceParam(agentdef.ToolChoiceAuto, false); !ok || choice.OfAuto == nil {
		t.Error("expected ToolChoiceAuto to produce an OfAuto param")
	}
	if choice, ok := toolChoiceParam(agentdef.ToolChoice("billing_agent"), false); !ok || choice.OfTool == nil || choice.OfTool.Name != "billing_agent" {
		t.Error("expected a named tool choice to produce an OfTool param")
	}
}
