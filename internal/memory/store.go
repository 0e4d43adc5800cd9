// Package memory provides per-user conversation history storage.
//
// History is process-local and intentionally not persisted: a restart
// loses it. Only user messages and final assistant replies are kept;
// intermediate tool-call traffic lives solely in the turn being
// processed.
package memory

import (
	"sync"
	"time"
)

// ConversationStore is the interface the agent loop consumes.
type ConversationStore interface {
	Messages(userID string) []Message
	Append(userID, role, content string)
	Clear(userID string)
	Stats() map[string]any
}

// Message is one conversation history entry.
type Message struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store manages bounded per-user conversation history.
type Store struct {
	mu          sync.RWMutex
	histories   map[string][]Message
	maxMessages int
}

// NewStore creates a conversation store keeping at most maxMessages
// entries per user. Non-positive values fall back to 20.
func NewStore(maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &Store{
		histories:   make(map[string][]Message),
		maxMessages: maxMessages,
	}
}

// Messages returns a copy of the user's history, oldest first.
func (s *Store) Messages(userID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.histories[userID]
	out := make([]Message, len(h))
	copy(out, h)
	return out
}

// Append adds a message to the user's history, silently dropping the
// oldest entries once the bound is exceeded.
func (s *Store) Append(userID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.histories[userID], Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if len(h) > s.maxMessages {
		h = h[len(h)-s.maxMessages:]
	}
	s.histories[userID] = h
}

// Clear removes a user's history.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, userID)
}

// Stats returns memory statistics.
func (s *Store) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, h := range s.histories {
		total += len(h)
	}
	return map[string]any{
		"users":        len(s.histories),
		"messages":     total,
		"max_per_user": s.maxMessages,
	}
}
