package llmadapter

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentsyard/swarmrt/internal/agentdef"
	"github.com/agentsyard/swarmrt/pkg/models"
)

// OpenAIAdapter implements Adapter over the OpenAI chat completions API,
// exercising the adapter boundary's provider-agnosticism alongside
// AnthropicAdapter.
type OpenAIAdapter struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIAdapter builds an adapter from an API key and default model.
func NewOpenAIAdapter(apiKey, defaultModel string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (<-chan Chunk, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	params := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.System, req.Messages),
		Tools:    toOpenAITools(req.Tools),
		Stream:   true,
	}
	if tc := toOpenAIToolChoice(req.ToolChoice); tc != nil {
		params.ToolChoice = tc
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llmadapter: openai create stream: %w", err)
	}

	out := make(chan Chunk, 8)
	go func() {
		defer close(out)
		defer stream.Close()

		var content string
		calls := map[int]*models.ToolCall{}
		var order []int
		var model string

		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				out <- Chunk{Error: fmt.Errorf("llmadapter: openai stream: %w", err)}
				return
			}
			model = resp.Model
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				content += delta.Content
				out <- Chunk{Text: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				existing, ok := calls[idx]
				if !ok {
					existing = &models.ToolCall{}
					calls[idx] = existing
					order = append(order, idx)
				}
				if tc.ID != "" {
					existing.ID = tc.ID
				}
				if tc.Function.Name != "" {
					existing.Name = tc.Function.Name
				}
				existing.Arguments += tc.Function.Arguments
			}
		}

		msg := models.Message{Role: models.RoleAssistant, Content: content, Info: &models.Info{Model: model}}
		for _, idx := range order {
			msg.ToolCalls = append(msg.ToolCalls, *calls[idx])
		}
		out <- Chunk{Done: true, Message: &msg}
	}()

	return out, nil
}

func toOpenAIMessages(system string, msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, msg)
		case models.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func toOpenAITools(tools []models.ToolDescriptor) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.JSONSchema(),
			},
		})
	}
	return out
}

func toOpenAIToolChoice(choice agentdef.ToolChoice) any {
	switch choice {
	case agentdef.ToolChoiceNone:
		return "none"
	case agentdef.ToolChoiceRequired:
		return "required"
	case agentdef.ToolChoiceAuto, "":
		return "auto"
	default:
		if name, ok := choice.Named(); ok {
			return openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: name}}
		}
		return "auto"
	}
}
