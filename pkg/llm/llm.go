// Package llm defines the transport-neutral contract between the response
// pipeline and whatever chat-completion backend is wired in.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat-completion request.
type Message struct {
	Role    string
	Content string
}

// Params are per-request sampling settings. Zero values mean
// "use the client's defaults".
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Client is implemented by the Ollama and OpenAI-compatible backends.
type Client interface {
	// Chat sends the message list and returns the assistant reply text.
	Chat(ctx context.Context, messages []Message, params Params) (string, error)
	// ModelName reports the model currently in use, for /stats and logs.
	ModelName() string
}

// ErrNoModel is returned when the backend is reachable but has no model
// available to serve the request.
var ErrNoModel = errors.New("no model available")

// ErrUnavailable is returned when the backend cannot be reached at all.
var ErrUnavailable = errors.New("backend unavailable")
