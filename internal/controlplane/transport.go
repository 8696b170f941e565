package controlplane

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Transport drains a Gate's outbound channel onto a websocket connection
// and feeds inbound frames back into the gate. Reader and writer run on
// independent goroutines — the "control-plane I/O is an independent
// serialized task" concurrency boundary: neither one shares state with
// the model-streaming or tool-execution paths except through the Gate's
// own locking.
//
// Each websocket text frame carries exactly one JSON-encoded message,
// the wire shape defined in wire.go.
type Transport struct {
	conn   *websocket.Conn
	gate   *Gate
	logger *slog.Logger
}

// NewTransport binds a Gate to an already-established websocket
// connection (accepted by the caller's HTTP handler via
// websocket.Upgrader — left to callers so this package stays
// transport-agnostic about auth and routing).
func NewTransport(conn *websocket.Conn, gate *Gate, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{conn: conn, gate: gate, logger: logger}
}

// RunWriter drains gate.Outbound() onto the connection until the channel
// closes or a write fails. Intended to run in its own goroutine for the
// lifetime of the connection.
func (t *Transport) RunWriter() error {
	for msg := range t.gate.outbound {
		raw, err := json.Marshal(msg)
		if err != nil {
			t.logger.Error("controlplane: marshal outbound message", "error", err, "kind", msg.Kind)
			continue
		}
		if err := t.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return fmt.Errorf("controlplane: write outbound: %w", err)
		}
	}
	return nil
}

// RunReader reads inbound frames until the connection closes or a read
// fails, applying each to the gate. onUserInput receives submitted text,
// if any (see Gate.HandleInbound).
func (t *Transport) RunReader(onUserInput func(text string)) error {
	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("controlplane: read inbound: %w", err)
		}
		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.logger.Warn("controlplane: malformed inbound message, skipping", "error", err)
			continue
		}
		t.gate.HandleInbound(msg, onUserInput)
	}
}
