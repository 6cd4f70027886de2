package roleplay

import (
	"context"
	"errors"
	"fmt"

	"alicebot/pkg/history"
	"alicebot/pkg/llm"
	"alicebot/pkg/persona"
)

// DefaultContextMessages is how many history entries accompany the user
// message when nothing else is configured.
const DefaultContextMessages = 8

// BackendResponder asks the generative backend for a reply, framing it
// with the persona system prompt and a bounded history window.
type BackendResponder struct {
	client          llm.Client
	params          llm.Params
	contextMessages int
}

func NewBackendResponder(client llm.Client, params llm.Params, contextMessages int) *BackendResponder {
	if contextMessages <= 0 {
		contextMessages = DefaultContextMessages
	}
	return &BackendResponder{
		client:          client,
		params:          params,
		contextMessages: contextMessages,
	}
}

// Respond builds the request and maps transport failures onto the
// package error taxonomy. recent must be in chronological order and is
// truncated to the configured window, newest kept.
func (b *BackendResponder) Respond(ctx context.Context, st persona.State, userName string, recent []history.Message, userMessage string) (string, error) {
	return b.RespondWith(ctx, st, userName, recent, userMessage, b.params)
}

// RespondWith is Respond with the sampling parameters overridden for
// this one call.
func (b *BackendResponder) RespondWith(ctx context.Context, st persona.State, userName string, recent []history.Message, userMessage string, params llm.Params) (string, error) {
	if len(recent) > b.contextMessages {
		recent = recent[len(recent)-b.contextMessages:]
	}

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: persona.SystemPrompt(st, userName),
	})
	for _, msg := range recent {
		role := llm.RoleUser
		content := msg.Content
		if msg.Role == history.RoleAssistant {
			role = llm.RoleAssistant
			// The directive is stripped before storage; reattach it so
			// the model keeps seeing replies in the format it is asked
			// to produce
			if prompt := msg.Metadata["image_prompt"]; prompt != "" {
				content = Assemble(content, prompt)
			}
		}
		messages = append(messages, llm.Message{Role: role, Content: content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	reply, err := b.client.Chat(ctx, messages, params)
	if err != nil {
		return "", mapBackendError(err)
	}
	if reply == "" {
		return "", fmt.Errorf("%w: empty completion", ErrBackend)
	}
	return reply, nil
}

func mapBackendError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNoModel):
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
}
