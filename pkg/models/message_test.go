package models

import "testing"

func TestHasToolCalls(t *testing.T) {
	if (Message{}).HasToolCalls() {
		t.Error("empty message should not report tool calls")
	}
	msg := Message{ToolCalls: []ToolCall{{ID: "1", Name: "add"}}}
	if !msg.HasToolCalls() {
		t.Error("message with tool calls should report true")
	}
}

func TestNewToolMessage(t *testing.T) {
	msg := NewToolMessage("call-1", "boom", true)
	if msg.Role != RoleTool {
		t.Errorf("expected role %q, got %q", RoleTool, msg.Role)
	}
	if msg.ToolCallID != "call-1" {
		t.Errorf("expected tool call id %q, got %q", "call-1", msg.ToolCallID)
	}
	if !msg.IsError {
		t.Error("expected IsError to be true")
	}
}

func TestNewSystemMessageRole(t *testing.T) {
	msg := NewSystemMessage("be helpful")
	if msg.Role != RoleSystem {
		t.Errorf("expected role %q, got %q", RoleSystem, msg.Role)
	}
	if msg.Content != "be helpful" {
		t.Errorf("unexpected content %q", msg.Content)
	}
}
