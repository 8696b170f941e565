package controlplane

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agentsyard/swarmrt/internal/events"
)

// Gate is the pause/step/breakpoint control structure the orchestrator
// consults at the top of every turn and after every event dispatch
// (spec §5, supplement C.1/C.2 grounded on the original source's
// Schwarm._trigger_event two-phase break check: a global pause consulted
// before dispatch, and a per-event-kind breakpoint consulted after).
//
// SetPaused and SetBreakpoint are idempotent; SetStep is additive — a
// second SetStep{2} while one is already armed adds to the remaining
// budget rather than replacing it (spec §5).
type Gate struct {
	mu            sync.Mutex
	paused        bool
	stepArmed     bool
	stepRemaining int
	resumeCh      chan struct{}
	breakpoints   map[events.Kind]bool
	outbound      chan OutboundMessage
}

// NewGate builds a Gate with the given outbound buffer size. A size of 0
// is rounded up to a small default so publishing never blocks the
// orchestrator on a slow or absent reader.
func NewGate(outboundBuffer int) *Gate {
	if outboundBuffer <= 0 {
		outboundBuffer = 64
	}
	return &Gate{
		resumeCh:    make(chan struct{}),
		breakpoints: make(map[events.Kind]bool),
		outbound:    make(chan OutboundMessage, outboundBuffer),
	}
}

// Outbound returns the channel of messages destined for the UI. A
// transport (see transport.go) drains it; tests may drain it directly.
func (g *Gate) Outbound() <-chan OutboundMessage {
	return g.outbound
}

// SetPaused toggles the gate's pause flag. A no-op if already in the
// requested state.
func (g *Gate) SetPaused(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setPausedLocked(paused)
}

func (g *Gate) setPausedLocked(paused bool) {
	if g.paused == paused {
		return
	}
	g.paused = paused
	if !paused {
		close(g.resumeCh)
		g.resumeCh = make(chan struct{})
	}
	g.publishLocked(OutboundMessage{Kind: OutboundBreakStatus, BreakStatus: &BreakStatus{Paused: paused}})
}

// SetStep arms n further turns to run once the gate is unpaused; once
// those turns complete the gate re-engages automatically. Additive: a
// pending budget accumulates rather than resets.
func (g *Gate) SetStep(n int) {
	if n <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stepArmed = true
	g.stepRemaining += n
}

// SetBreakpoint arms or disarms a pause trigger on a given event kind.
func (g *Gate) SetBreakpoint(kind events.Kind, on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if on {
		g.breakpoints[kind] = true
	} else {
		delete(g.breakpoints, kind)
	}
}

// TurnStart blocks while the gate is paused, returning when it is
// unpaused or ctx is cancelled. Call at the top of every turn.
func (g *Gate) TurnStart(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		resumeCh := g.resumeCh
		g.mu.Unlock()

		select {
		case <-resumeCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TurnEnd consumes one unit of an armed step budget, re-engaging the
// pause once the budget is exhausted. Call once per completed turn.
func (g *Gate) TurnEnd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.stepArmed {
		return
	}
	g.stepRemaining--
	if g.stepRemaining <= 0 {
		g.stepArmed = false
		g.stepRemaining = 0
		g.setPausedLocked(true)
	}
}

// AfterEvent is consulted after every event dispatch: if kind carries an
// active breakpoint, the gate engages, then blocks until unpaused or ctx
// is cancelled — the second phase of the two-phase break check.
func (g *Gate) AfterEvent(ctx context.Context, kind events.Kind) error {
	g.mu.Lock()
	if g.breakpoints[kind] {
		g.setPausedLocked(true)
	}
	g.mu.Unlock()
	return g.TurnStart(ctx)
}

// Paused reports the gate's current pause state.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// PublishSpan emits a completed span to the outbound channel, dropping it
// if the buffer is full rather than blocking the orchestrator.
func (g *Gate) PublishSpan(span Span) {
	if span.ID == "" {
		span.ID = uuid.NewString()
	}
	g.publish(OutboundMessage{Kind: OutboundSpan, Span: &span})
}

// PublishStreamChunk emits incremental model/tool text to the UI.
func (g *Gate) PublishStreamChunk(channel StreamChannel, text string) {
	g.publish(OutboundMessage{Kind: OutboundStreamChunk, StreamChunk: &StreamChunk{Channel: channel, Text: text}})
}

// PublishChatStatus emits whether the runtime is blocked on user input.
func (g *Gate) PublishChatStatus(awaitingUserInput bool) {
	g.publish(OutboundMessage{Kind: OutboundChatStatus, ChatStatus: &ChatStatus{AwaitingUserInput: awaitingUserInput}})
}

func (g *Gate) publish(msg OutboundMessage) {
	select {
	case g.outbound <- msg:
	default:
	}
}

func (g *Gate) publishLocked(msg OutboundMessage) {
	select {
	case g.outbound <- msg:
	default:
	}
}

// HandleInbound applies one inbound wire message to the gate. userInput,
// text from a user_input message is forwarded to onUserInput; nil is
// tolerated, in which case user_input messages are ignored.
func (g *Gate) HandleInbound(msg InboundMessage, onUserInput func(text string)) {
	switch msg.Kind {
	case InboundSetPaused:
		g.SetPaused(msg.Paused)
	case InboundSetStep:
		g.SetStep(msg.Step)
	case InboundSetBreakpoint:
		g.SetBreakpoint(events.Kind(msg.Breakpoint), true)
	case InboundUserInput:
		if onUserInput != nil {
			onUserInput(msg.Text)
		}
	}
}
