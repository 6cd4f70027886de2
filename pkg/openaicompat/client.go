// Package openaicompat implements the chat backend contract on top of
// any OpenAI-compatible API, for deployments without a local Ollama.
package openaicompat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"alicebot/pkg/llm"
)

type Client struct {
	client openai.Client

	mu    sync.RWMutex
	model string
}

// NewClient creates a client. baseURL may be empty for the default
// OpenAI endpoint.
func NewClient(baseURL, apiKey, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) ModelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *Client) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

func (c *Client) Chat(ctx context.Context, messages []llm.Message, params llm.Params) (string, error) {
	model := c.ModelName()
	if model == "" {
		return "", llm.ErrNoModel
	}

	chatMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			chatMessages[i] = openai.SystemMessage(msg.Content)
		case llm.RoleAssistant:
			chatMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			chatMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	reqParams := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMessages,
	}
	if params.Temperature > 0 {
		reqParams.Temperature = openai.Float(params.Temperature)
	}
	if params.TopP > 0 {
		reqParams.TopP = openai.Float(params.TopP)
	}
	if params.MaxTokens > 0 {
		reqParams.MaxTokens = openai.Int(int64(params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, reqParams)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isConnectionError(err) {
			return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
		}
		return "", err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %s", model)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isConnectionError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection reset")
}
