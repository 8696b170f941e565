package orchestrator

import (
	"context"

	"github.com/agentsyard/swarmrt/pkg/models"
)

// defaultQuickstartMaxTurns matches the original source's
// Schwarm.quickstart default turn budget.
const defaultQuickstartMaxTurns = 100

// Quickstart wraps Run with the defaults the original source's
// Schwarm.quickstart applied: a single user message, tool execution
// enabled, and a generous turn budget, for callers that don't need to
// tune RunOptions directly.
func (o *Orchestrator) Quickstart(ctx context.Context, startAgent, userText string) (RunResult, error) {
	return o.Run(ctx, RunOptions{
		StartAgent:      startAgent,
		InitialMessages: []models.Message{models.NewUserMessage(userText)},
		MaxTurns:        defaultQuickstartMaxTurns,
		ExecuteTools:    true,
	})
}
