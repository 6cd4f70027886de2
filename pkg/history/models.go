// Package history stores per-user conversation logs and the persona state
// attached to them. The in-memory store is the source of truth; an
// optional Redis-backed decorator mirrors it for fast restarts.
package history

import (
	"time"

	"github.com/google/uuid"

	"alicebot/pkg/persona"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation entry. Metadata carries side-channel data
// (image prompt, mood, scene) that never reaches the LLM context.
type Message struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage builds a message with a fresh ID and timestamp.
func NewMessage(role, content string, metadata map[string]string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// Conversation is everything known about one user.
type Conversation struct {
	UserID    int64         `json:"user_id"`
	Messages  []Message     `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Persona   persona.State `json:"persona"`

	// TotalCount is the lifetime message count. It survives history
	// trimming and Clear so the relationship tier never regresses.
	TotalCount int `json:"total_count"`
}

// Stats is an aggregate snapshot for the /stats command.
type Stats struct {
	Conversations int
	Messages      int
	TotalMessages int
}

// Store is the conversation log contract. Implementations must be safe
// for concurrent use.
type Store interface {
	// Append adds a message to the user's log, creating the conversation
	// on first contact, and returns the stored message.
	Append(userID int64, role, content string, metadata map[string]string) (Message, error)
	// Recent returns up to limit most recent messages in chronological
	// order. limit <= 0 returns the entire (trimmed) history.
	Recent(userID int64, limit int) ([]Message, error)
	// Clear drops the user's messages but keeps the conversation record,
	// its lifetime count and persona state.
	Clear(userID int64) error
	// TotalMessages reports the lifetime message count for the user.
	TotalMessages(userID int64) int
	// Persona returns the user's persona state, or the initial state if
	// the user is unknown.
	Persona(userID int64) persona.State
	// SetPersona replaces the user's persona state, creating the
	// conversation if needed.
	SetPersona(userID int64, st persona.State) error
	// Stats reports aggregate counters.
	Stats() Stats
}
