package history

import (
	"sync"
	"time"

	"alicebot/pkg/persona"
)

// MemoryStore keeps conversations in a map guarded by a single RWMutex.
// Each user's log is trimmed to maxHistory*2 entries (user and assistant
// turns), oldest first. When the conversation count exceeds
// maxConversations the least recently updated ones are evicted.
type MemoryStore struct {
	mu               sync.RWMutex
	conversations    map[int64]*Conversation
	maxHistory       int
	maxConversations int
}

func NewMemoryStore(maxHistory, maxConversations int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &MemoryStore{
		conversations:    make(map[int64]*Conversation),
		maxHistory:       maxHistory,
		maxConversations: maxConversations,
	}
}

// get returns the conversation, creating it lazily. Caller must hold the
// write lock.
func (s *MemoryStore) get(userID int64) *Conversation {
	conv, ok := s.conversations[userID]
	if !ok {
		if s.maxConversations > 0 && len(s.conversations) >= s.maxConversations {
			s.evictOldest()
		}
		now := time.Now()
		conv = &Conversation{
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
			Persona:   persona.NewState(),
		}
		s.conversations[userID] = conv
	}
	return conv
}

func (s *MemoryStore) evictOldest() {
	var oldestID int64
	var oldest time.Time
	first := true
	for id, conv := range s.conversations {
		if first || conv.UpdatedAt.Before(oldest) {
			oldestID = id
			oldest = conv.UpdatedAt
			first = false
		}
	}
	if !first {
		delete(s.conversations, oldestID)
	}
}

func (s *MemoryStore) Append(userID int64, role, content string, metadata map[string]string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.get(userID)
	msg := NewMessage(role, content, metadata)
	conv.Messages = append(conv.Messages, msg)
	conv.TotalCount++
	conv.UpdatedAt = msg.Timestamp

	if limit := s.maxHistory * 2; len(conv.Messages) > limit {
		conv.Messages = conv.Messages[len(conv.Messages)-limit:]
	}

	return msg, nil
}

func (s *MemoryStore) Recent(userID int64, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[userID]
	if !ok {
		return []Message{}, nil
	}

	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Clear(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[userID]; ok {
		conv.Messages = nil
		conv.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) TotalMessages(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if conv, ok := s.conversations[userID]; ok {
		return conv.TotalCount
	}
	return 0
}

func (s *MemoryStore) Persona(userID int64) persona.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if conv, ok := s.conversations[userID]; ok {
		return conv.Persona
	}
	return persona.NewState()
}

func (s *MemoryStore) SetPersona(userID int64, st persona.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.get(userID)
	conv.Persona = st
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Conversations: len(s.conversations)}
	for _, conv := range s.conversations {
		st.Messages += len(conv.Messages)
		st.TotalMessages += conv.TotalCount
	}
	return st
}
