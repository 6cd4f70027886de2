// Package ollama talks to a local Ollama server over its HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"alicebot/pkg/llm"
)

// preferredVariants picks a sensible chat model when the configured one
// is not installed.
var preferredVariants = []string{"llama", "mistral", "qwen", "dolphin"}

type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one installed model, as reported by /api/tags.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// APIError captures non-200 responses to allow inspection of the status code.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a client for the given server. model may be empty;
// call EnsureModel to auto-select one before use.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		model: model,
	}
}

func (c *Client) ModelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches to another installed model.
func (c *Client) SetModel(ctx context.Context, name string) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.Name == name {
			c.mu.Lock()
			c.model = name
			c.mu.Unlock()
			log.Printf("Switched to model: %s", name)
			return nil
		}
	}
	return fmt.Errorf("model %q is not installed", name)
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return tags.Models, nil
}

// EnsureModel verifies the configured model is installed, falling back to
// a preferred variant or the first installed model.
func (c *Client) EnsureModel(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return llm.ErrNoModel
	}

	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		if name == c.model {
			return nil
		}
	}
	if c.model != "" {
		log.Printf("Model %s not found. Available models: %v", c.model, names)
	}

	for _, name := range names {
		lower := strings.ToLower(name)
		for _, variant := range preferredVariants {
			if strings.Contains(lower, variant) {
				c.model = name
				log.Printf("Auto-selected model: %s", name)
				return nil
			}
		}
	}

	c.model = names[0]
	log.Printf("Using first available model: %s", names[0])
	return nil
}

// Chat sends the message list and returns the reply text.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, params llm.Params) (string, error) {
	model := c.ModelName()
	if model == "" {
		return "", llm.ErrNoModel
	}

	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	reqBody := chatRequest{
		Model:    model,
		Stream:   false,
		Messages: chatMessages,
		Options: chatOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	content := strings.TrimSpace(apiResp.Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from model %s", model)
	}

	log.Printf("Model %s replied (took %v, %d chars)", model, time.Since(start), len(content))
	return content, nil
}
