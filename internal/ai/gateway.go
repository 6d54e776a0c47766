package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"datacopilot/internal/config"
)

// Tool pairs a function declaration the model sees with the executor that
// runs when the model calls it.
type Tool struct {
	Definition openai.Tool
	Execute    func(ctx context.Context, arguments string) (string, error)
}

// Gateway talks to the configured LLM providers over their OpenAI-compatible
// chat-completions endpoints. One client per provider, built once at startup.
type Gateway struct {
	clients      map[Provider]*openai.Client
	maxToolSteps int
}

var ErrProviderNotConfigured = errors.New("provider is not configured")

func NewGateway(cfg config.LLMConfig) *Gateway {
	maxSteps := cfg.MaxToolSteps
	if maxSteps <= 0 {
		maxSteps = 5
	}

	clients := make(map[Provider]*openai.Client, 2)
	clients[ProviderOpenAI] = newClient(cfg.OpenAI)
	clients[ProviderAnthropic] = newClient(cfg.Anthropic)

	return &Gateway{clients: clients, maxToolSteps: maxSteps}
}

func newClient(provider config.ProviderConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(provider.APIKey)
	if provider.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(provider.BaseURL, "/")
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (g *Gateway) client(model Model) (*openai.Client, error) {
	c, ok := g.clients[model.Provider]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, model.Provider)
	}
	return c, nil
}

// GenerateText runs a single non-streaming completion. Used for title
// generation and schema compression.
func (g *Gateway) GenerateText(ctx context.Context, model Model, system, prompt string) (string, error) {
	c, err := g.client(model)
	if err != nil {
		return "", err
	}

	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model.APIIdentifier,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate text failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate text returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat streams a chat completion, forwarding each text delta through
// onDelta as it arrives. When the model requests tools, the registered
// executors run and the loop continues with their results, bounded by
// maxToolSteps. The returned turns are everything generated this call, in
// order, including assistant tool-call turns and their tool results.
func (g *Gateway) StreamChat(
	ctx context.Context,
	model Model,
	system string,
	history []Turn,
	tools []Tool,
	onDelta func(string) error,
) ([]Turn, error) {
	c, err := g.client(model)
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, turn := range history {
		messages = append(messages, toOpenAIMessage(turn))
	}

	defs := make([]openai.Tool, 0, len(tools))
	executors := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		defs = append(defs, tool.Definition)
		executors[tool.Definition.Function.Name] = tool
	}

	var generated []Turn
	for step := 0; step < g.maxToolSteps; step++ {
		assistant, err := g.streamOnce(ctx, c, model, messages, defs, onDelta)
		if err != nil {
			return generated, err
		}

		generated = append(generated, assistant)
		messages = append(messages, toOpenAIMessage(assistant))

		if len(assistant.ToolCalls) == 0 {
			return generated, nil
		}

		for _, call := range assistant.ToolCalls {
			result := runTool(ctx, executors, call)
			generated = append(generated, result)
			messages = append(messages, toOpenAIMessage(result))
		}
	}

	// Step limit reached with tool calls still pending. The dangling calls in
	// the last assistant turn are removed by sanitization before persisting.
	return generated, nil
}

func (g *Gateway) streamOnce(
	ctx context.Context,
	c *openai.Client,
	model Model,
	messages []openai.ChatCompletionMessage,
	defs []openai.Tool,
	onDelta func(string) error,
) (Turn, error) {
	req := openai.ChatCompletionRequest{
		Model:    model.APIIdentifier,
		Messages: messages,
		Stream:   true,
	}
	if len(defs) > 0 {
		req.Tools = defs
	}

	stream, err := c.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return Turn{}, fmt.Errorf("open completion stream failed: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	var calls []ToolCall

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Turn{}, fmt.Errorf("completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onDelta != nil {
				if err := onDelta(delta.Content); err != nil {
					return Turn{}, fmt.Errorf("forward delta failed: %w", err)
				}
			}
		}
		calls = accumulateToolCalls(calls, delta.ToolCalls)
	}

	return Turn{
		Role:      RoleAssistant,
		Content:   content.String(),
		ToolCalls: calls,
	}, nil
}

// accumulateToolCalls merges streamed tool-call fragments by index. The id and
// name arrive with the first fragment; argument JSON arrives in pieces.
func accumulateToolCalls(calls []ToolCall, deltas []openai.ToolCall) []ToolCall {
	for _, d := range deltas {
		idx := len(calls)
		if d.Index != nil {
			idx = *d.Index
		}
		for idx >= len(calls) {
			calls = append(calls, ToolCall{})
		}
		if d.ID != "" {
			calls[idx].ID = d.ID
		}
		if d.Function.Name != "" {
			calls[idx].Name = d.Function.Name
		}
		calls[idx].Arguments += d.Function.Arguments
	}
	return calls
}

func runTool(ctx context.Context, executors map[string]Tool, call ToolCall) Turn {
	result := Turn{Role: RoleTool, ToolCallID: call.ID}

	tool, ok := executors[call.Name]
	if !ok {
		result.Content = fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name)
		return result
	}

	output, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		log.Printf("tool %s failed: %v", call.Name, err)
		result.Content = fmt.Sprintf(`{"error":%q}`, err.Error())
		return result
	}
	result.Content = output
	return result
}

func toOpenAIMessage(turn Turn) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       turn.Role,
		Content:    turn.Content,
		ToolCallID: turn.ToolCallID,
	}
	for _, call := range turn.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return msg
}
