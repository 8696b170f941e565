package toolinvoker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

type addTool struct{}

func (addTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{Name: "add"}
}

func (addTool) Invoke(args, _ map[string]any) (any, error) {
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return int(a + b), nil
}

type transferTool struct{}

func (transferTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{Name: "transfer"}
}

func (transferTool) Invoke(args, _ map[string]any) (any, error) {
	to, _ := args["to"].(string)
	return agentdef.InvocationResult{Value: "ok", Agent: to}, nil
}

type fetchTool struct{ delay time.Duration }

func (f fetchTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{Name: "fetch"}
}

func (f fetchTool) Invoke(args, _ map[string]any) (any, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	url, _ := args["url"].(string)
	return url, nil
}

type contextVarEchoTool struct{ seen map[string]any }

func (contextVarEchoTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{Name: "echo"}
}

func (t *contextVarEchoTool) Invoke(args, _ map[string]any) (any, error) {
	t.seen = args
	return "ok", nil
}

type panicTool struct{}

func (panicTool) Descriptor() models.ToolDescriptor { return models.ToolDescriptor{Name: "boom"} }
func (panicTool) Invoke(args, _ map[string]any) (any, error) {
	panic("kaboom")
}

func mustArgs(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return string(raw)
}

// TestInvokeSingleToolCall matches scenario S2: one call, one result.
func TestInvokeSingleToolCall(t *testing.T) {
	agent := &agentdef.Agent{Name: "adder", Tools: []agentdef.Tool{addTool{}}}
	inv := New(0)

	calls := []models.ToolCall{{ID: "call-1", Name: "add", Arguments: mustArgs(t, map[string]any{"a": 2.0, "b": 3.0})}}
	result := inv.Invoke(agent, calls, nil)

	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 tool message, got %d", len(result.Messages))
	}
	if result.Messages[0].Content != "5" {
		t.Errorf("expected content %q, got %q", "5", result.Messages[0].Content)
	}
	if result.Messages[0].ToolCallID != "call-1" {
		t.Errorf("expected tool_call_id call-1, got %q", result.Messages[0].ToolCallID)
	}
	if result.HandoffTarget != "" {
		t.Errorf("expected no handoff, got %q", result.HandoffTarget)
	}
}

// TestInvokeParallelPreservesDeclaredOrder matches scenario S4.
func TestInvokeParallelPreservesDeclaredOrder(t *testing.T) {
	agent := &agentdef.Agent{Name: "fetcher", Tools: []agentdef.Tool{fetchTool{delay: 50 * time.Millisecond}}, ParallelToolCalls: true}
	inv := New(0)

	calls := []models.ToolCall{
		{ID: "call-a", Name: "fetch", Arguments: mustArgs(t, map[string]any{"url": "A"})},
		{ID: "call-b", Name: "fetch", Arguments: mustArgs(t, map[string]any{"url": "B"})},
	}
	result := inv.Invoke(agent, calls, nil)

	if len(result.Messages) != 2 {
		t.Fatalf("expected 2 tool messages, got %d", len(result.Messages))
	}
	if result.Messages[0].Content != "A" || result.Messages[1].Content != "B" {
		t.Fatalf("expected declared order [A B] regardless of completion order, got [%s %s]", result.Messages[0].Content, result.Messages[1].Content)
	}
}

// TestInvokeUnknownToolProducesErrorMessage matches scenario S5.
func TestInvokeUnknownToolProducesErrorMessage(t *testing.T) {
	agent := &agentdef.Agent{Name: "a", Tools: nil}
	inv := New(0)

	calls := []models.ToolCall{{ID: "call-1", Name: "nonexistent", Arguments: "{}"}}
	result := inv.Invoke(agent, calls, nil)

	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 tool message, got %d", len(result.Messages))
	}
	if !result.Messages[0].IsError {
		t.Error("expected error payload for unknown tool")
	}
	if result.Messages[0].ToolCallID != "call-1" {
		t.Errorf("expected matching tool_call_id, got %q", result.Messages[0].ToolCallID)
	}
}

func TestInvokeHandoffLastNonNullWins(t *testing.T) {
	agent := &agentdef.Agent{Name: "router", Tools: []agentdef.Tool{transferTool{}}, ParallelToolCalls: false}
	inv := New(0)

	calls := []models.ToolCall{
		{ID: "call-1", Name: "transfer", Arguments: mustArgs(t, map[string]any{"to": "worker-a"})},
		{ID: "call-2", Name: "transfer", Arguments: mustArgs(t, map[string]any{"to": "worker-b"})},
	}
	result := inv.Invoke(agent, calls, nil)

	if result.HandoffTarget != "worker-b" {
		t.Errorf("expected last non-null agent to win, got %q", result.HandoffTarget)
	}
	if result.HandoffSourceCallID != "call-2" {
		t.Errorf("expected handoff source call-2, got %q", result.HandoffSourceCallID)
	}
}

func TestInvokeStripsReservedContextVariablesKey(t *testing.T) {
	echo := &contextVarEchoTool{}
	agent := &agentdef.Agent{Name: "a", Tools: []agentdef.Tool{echo}}
	inv := New(0)

	calls := []models.ToolCall{{ID: "call-1", Name: "echo", Arguments: mustArgs(t, map[string]any{
		"foo":                         "bar",
		ReservedContextVariablesKey: map[string]any{"secret": 1},
	})}}
	inv.Invoke(agent, calls, map[string]any{"secret": 1})

	if _, ok := echo.seen[ReservedContextVariablesKey]; ok {
		t.Error("expected reserved contextVariables key to be stripped from decoded arguments")
	}
	if echo.seen["foo"] != "bar" {
		t.Errorf("expected foo=bar to survive stripping, got %v", echo.seen["foo"])
	}
}

func TestInvokeMalformedArgumentsWrapUnderInput(t *testing.T) {
	agent := &agentdef.Agent{Name: "a", Tools: []agentdef.Tool{&contextVarEchoTool{}}}
	echo := agent.Tools[0].(*contextVarEchoTool)
	inv := New(0)

	calls := []models.ToolCall{{ID: "call-1", Name: "echo", Arguments: "not json"}}
	inv.Invoke(agent, calls, nil)

	if echo.seen["input"] != "not json" {
		t.Errorf("expected malformed raw argument wrapped under input, got %v", echo.seen)
	}
}

func TestInvokeRecoversToolPanic(t *testing.T) {
	agent := &agentdef.Agent{Name: "a", Tools: []agentdef.Tool{panicTool{}}}
	inv := New(0)

	calls := []models.ToolCall{{ID: "call-1", Name: "boom", Arguments: "{}"}}
	result := inv.Invoke(agent, calls, nil)

	if len(result.Messages) != 1 || !result.Messages[0].IsError {
		t.Fatalf("expected a recovered panic to surface as an error tool message, got %+v", result.Messages)
	}
}
