package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// AnthropicAdapter implements Adapter over the Anthropic Messages API.
type AnthropicAdapter struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicAdapter builds an adapter using the given API key and
// default model (used when a Request leaves Model empty).
func NewAnthropicAdapter(apiKey, defaultModel string) *AnthropicAdapter {
	return &AnthropicAdapter{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (<-chan Chunk, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System:    toSystemBlocks(req.System),
		Messages:  toAnthropicMessages(req.Messages),
		Tools:     toAnthropicTools(req.Tools),
	}
	if choice, ok := toolChoiceParam(req.ToolChoice, req.Parallel); ok {
		params.ToolChoice = choice
	}

	out := make(chan Chunk, 8)

	go func() {
		defer close(out)

		stream := a.client.Messages.NewStreaming(ctx, params)
		acc := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				out <- Chunk{Error: fmt.Errorf("llmadapter: anthropic accumulate: %w", err)}
				return
			}
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					out <- Chunk{Text: text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- Chunk{Error: fmt.Errorf("llmadapter: anthropic stream: %w", err)}
			return
		}

		msg := fromAnthropicMessage(acc)
		out <- Chunk{Done: true, Message: &msg}
	}()

	return out, nil
}

func toSystemBlocks(system string) []anthropic.TextBlockParam {
	if system == "" {
		return nil
	}
	return []anthropic.TextBlockParam{{Text: system}}
}

func toAnthropicMessages(msgs []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, []byte(tc.Arguments), tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case models.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError)))
		}
	}
	return out
}

func toAnthropicTools(tools []models.ToolDescriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.JSONSchema(), &schema); err != nil {
			// Malformed descriptor schema; fall back to an empty object schema
			// rather than dropping the tool from the request entirely.
			schema = anthropic.ToolInputSchemaParam{}
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, param)
	}
	return out
}

func toolChoiceParam(choice agentdef.ToolChoice, parallel bool) (anthropic.ToolChoiceUnionParam, bool) {
	switch choice {
	case agentdef.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, true
	case agentdef.ToolChoiceRequired:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{DisableParallelToolUse: anthropic.Bool(!parallel)}}, true
	case agentdef.ToolChoiceAuto, "":
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{DisableParallelToolUse: anthropic.Bool(!parallel)}}, true
	default:
		if name, ok := choice.Named(); ok {
			return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: name, DisableParallelToolUse: anthropic.Bool(!parallel)}}, true
		}
	}
	return anthropic.ToolChoiceUnionParam{}, false
}

func fromAnthropicMessage(msg anthropic.Message) models.Message {
	out := models.Message{Role: models.RoleAssistant}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		}
	}
	out.Info = &models.Info{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Model:        string(msg.Model),
	}
	return out
}
