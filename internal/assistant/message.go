package assistant

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TypingContent is the sentinel content of a pending assistant turn. It is never persisted.
const TypingContent = "…"

// Message represents a single turn in a conversation
type Message struct {
	ID        string    `json:"id"`        // Local UUID for optimistic entries, server id once loaded from history
	Role      Role      `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // Message content
	Timestamp time.Time `json:"timestamp"` // Creation time (client) or server echo
	IsTyping  bool      `json:"-"`         // True only for the transient placeholder
}

// NewLocalMessage creates a message with a locally generated id
func NewLocalMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}

// NewPlaceholder creates the transient "typing" assistant message
func NewPlaceholder(at time.Time) Message {
	m := NewLocalMessage(RoleAssistant, TypingContent, at)
	m.IsTyping = true
	return m
}

// Conversation is a named ordered sequence of messages.
// An empty ID means the conversation has not been created server-side yet.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// MessageCount returns the number of messages in the conversation
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// GetShortID returns the shortened conversation ID (first 8 characters)
func (c *Conversation) GetShortID() string {
	if len(c.ID) >= 8 {
		return c.ID[:8]
	}
	return c.ID
}

// LastUpdated returns the timestamp of the newest message, or the zero time
func (c *Conversation) LastUpdated() time.Time {
	if len(c.Messages) == 0 {
		return time.Time{}
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}
