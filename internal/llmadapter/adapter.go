// Package llmadapter defines the model-adapter boundary (spec §6):
// complete(model, messages, tools, toolChoice, parallel, stream) ->
// assistant message. The adapter itself is an external collaborator
// (spec §1 lists "the model-client adapter" as out of scope for the
// runtime's core); this package only fixes the interface the orchestrator
// depends on, plus two concrete implementations that exercise it against
// real model APIs.
package llmadapter

import (
	"context"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// Request is one completion request: the conversation so far (system
// message excluded — it travels separately, matching invariant 1's rule
// that the system message is never stored in history), the agent's tool
// descriptors, and its tool-choice/parallel policy.
type Request struct {
	Model      string
	System     string
	Messages   []models.Message
	Tools      []models.ToolDescriptor
	ToolChoice agentdef.ToolChoice
	Parallel   bool
}

// Chunk is one piece of a streaming completion. Intermediate chunks carry
// Text (incremental content); the final chunk has Done set and Message
// populated with the full aggregated assistant message — only that final
// message is ever appended to run history (spec §9 "Streaming vs
// history").
type Chunk struct {
	Text    string
	Done    bool
	Message *models.Message
	Error   error
}

// Adapter is the model-client contract the orchestrator calls through.
// Implementations must be safe for concurrent use.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Collect drains an Adapter's chunk channel and returns only the final
// aggregated message, discarding intermediate text chunks. Callers that
// want to forward streamed text to a control plane should range over the
// channel themselves instead of calling this helper.
func Collect(chunks <-chan Chunk) (models.Message, error) {
	var last models.Message
	for c := range chunks {
		if c.Error != nil {
			return models.Message{}, c.Error
		}
		if c.Done && c.Message != nil {
			last = *c.Message
		}
	}
	return last, nil
}
