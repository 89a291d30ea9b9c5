package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/wattwise/pkg/provider"
)

const (
	// DefaultConversation is used when a request names no conversation.
	DefaultConversation = "default"
	// MaxHistory bounds the messages kept per conversation.
	MaxHistory = 200
)

// Conversation is the message history of one chat.
type Conversation struct {
	ID        string             `json:"conversation_id"`
	Messages  []provider.Message `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Sessions stores conversations by id.
type Sessions struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	now   func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{convs: make(map[string]*Conversation), now: time.Now}
}

// Create starts an empty conversation and returns its id.
func (s *Sessions) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(id)
	return id
}

// History returns a copy of the messages in conversation id.
func (s *Sessions) History(id string) []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil
	}
	return append([]provider.Message(nil), c.Messages...)
}

// Append adds msgs to conversation id, creating it if needed, and prunes
// the oldest messages beyond MaxHistory.
func (s *Sessions) Append(id string, msgs ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(id)
	c.Messages = append(c.Messages, msgs...)
	if over := len(c.Messages) - MaxHistory; over > 0 {
		c.Messages = append([]provider.Message(nil), c.Messages[over:]...)
	}
	c.UpdatedAt = s.now().UTC()
}

// Delete drops conversation id. It reports whether it existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return false
	}
	delete(s.convs, id)
	return true
}

// Len returns the number of live conversations.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

func (s *Sessions) getOrCreate(id string) *Conversation {
	c, ok := s.convs[id]
	if !ok {
		now := s.now().UTC()
		c = &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
		s.convs[id] = c
	}
	return c
}
