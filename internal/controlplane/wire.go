// Package controlplane implements the control plane (C7): a bidirectional
// channel between the orchestrator and an external UI. Spans and model
// stream chunks flow outward; pause toggles, breakpoint sets, and
// user-input submissions flow inward.
//
// Per spec §9 ("Singletons in the source... should be passed as explicit
// dependencies in the rewrite"), Gate is an ordinary struct constructed by
// the caller and threaded through the orchestrator — never a
// package-level singleton, unlike the original source's WebsocketManager.
package controlplane

import "time"

// OutboundKind identifies the shape of an outbound message.
type OutboundKind string

const (
	OutboundSpan        OutboundKind = "span"
	OutboundStreamChunk OutboundKind = "stream_chunk"
	OutboundChatStatus  OutboundKind = "chat_status"
	OutboundBreakStatus OutboundKind = "break_status"
)

// StreamChannel distinguishes assistant text from tool output in a
// StreamChunk.
type StreamChannel string

const (
	StreamAssistant StreamChannel = "assistant"
	StreamTool      StreamChannel = "tool"
)

// Span is the telemetry record laid out in spec §6: one per event
// dispatch, per model call, or per tool call.
type Span struct {
	ID         string            `json:"id"`
	ParentID   string            `json:"parent_id,omitempty"`
	Name       string            `json:"name"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// StreamChunk is incremental model/tool output, forwarded to the UI as it
// is produced. Only the adapter's final aggregated message is ever
// written to run history — chunks here are UI-only (spec §9).
type StreamChunk struct {
	Channel StreamChannel `json:"channel"`
	Text    string        `json:"text"`
}

// ChatStatus reports whether the runtime is blocked waiting on the UI for
// input.
type ChatStatus struct {
	AwaitingUserInput bool `json:"awaiting_user_input"`
}

// BreakStatus reports the pause gate's current state.
type BreakStatus struct {
	Paused bool `json:"paused"`
}

// OutboundMessage is the JSON envelope for every outbound wire message,
// sent one per websocket text frame (see transport.go): exactly one of the
// payload fields is set, selected by Kind.
type OutboundMessage struct {
	Kind        OutboundKind `json:"kind"`
	Span        *Span        `json:"span,omitempty"`
	StreamChunk *StreamChunk `json:"stream_chunk,omitempty"`
	ChatStatus  *ChatStatus  `json:"chat_status,omitempty"`
	BreakStatus *BreakStatus `json:"break_status,omitempty"`
}

// InboundKind identifies the shape of an inbound message.
type InboundKind string

const (
	InboundSetPaused    InboundKind = "set_paused"
	InboundSetStep      InboundKind = "set_step"
	InboundSetBreakpoint InboundKind = "set_breakpoint"
	InboundUserInput    InboundKind = "user_input"
)

// InboundMessage is the JSON envelope for every inbound wire message,
// received one per websocket text frame.
type InboundMessage struct {
	Kind       InboundKind `json:"kind"`
	Paused     bool        `json:"paused,omitempty"`
	Step       int         `json:"step,omitempty"`
	Breakpoint string      `json:"breakpoint,omitempty"`
	Text       string      `json:"text,omitempty"`
}
