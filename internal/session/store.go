package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
)

var (
	// ErrPlaceholderPending is returned by Append while a reply is awaited
	ErrPlaceholderPending = errors.New("a reply is still pending")
	// ErrTypingMessage is returned by Append for typing messages
	ErrTypingMessage = errors.New("typing messages are added with AppendPlaceholder")
)

// Store is the in-memory conversation for the current session.
// At most one typing message exists, and it is always the last one.
type Store struct {
	history  assistant.HistorySource
	greeting string
	log      zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	id          string
	messages    []assistant.Message
	greetingMsg *assistant.Message
}

// NewStore creates a store hydrated from history. A nil history behaves like an empty backend.
func NewStore(history assistant.HistorySource, greeting string, log zerolog.Logger) *Store {
	return &Store{
		history:  history,
		greeting: greeting,
		log:      log,
		now:      time.Now,
	}
}

// Hydrate loads the most recent conversation. When there is none, or it is empty,
// or the backend cannot be reached, the store holds a single greeting and no id.
// The returned error is informational; the store is always usable afterwards.
func (s *Store) Hydrate(ctx context.Context) error {
	var (
		convs []assistant.Conversation
		err   error
	)
	if s.history != nil {
		convs, err = s.history.ListConversations(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load conversation history, starting fresh")
		s.seedGreeting(false)
		return fmt.Errorf("failed to load conversation history: %w", err)
	}

	if len(convs) == 0 || len(convs[0].Messages) == 0 {
		s.seedGreeting(false)
		return nil
	}

	latest := convs[0]
	s.id = latest.ID
	s.messages = make([]assistant.Message, 0, len(latest.Messages))
	for _, m := range latest.Messages {
		m.IsTyping = false
		s.messages = append(s.messages, m)
	}
	s.log.Debug().Str("conversation_id", s.id).Int("messages", len(s.messages)).Msg("conversation hydrated")
	return nil
}

// AppendPlaceholder appends the typing message, replacing an existing one
func (s *Store) AppendPlaceholder() assistant.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := assistant.NewPlaceholder(s.now())
	if s.pending() {
		s.messages[len(s.messages)-1] = p
	} else {
		s.messages = append(s.messages, p)
	}
	return p
}

// ResolvePlaceholder removes the typing message and appends msg in one step.
// It returns false and changes nothing when no placeholder is pending.
func (s *Store) ResolvePlaceholder(msg assistant.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending() {
		return false
	}
	msg.IsTyping = false
	s.messages[len(s.messages)-1] = msg
	return true
}

// Append adds a terminal message
func (s *Store) Append(msg assistant.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.IsTyping {
		return ErrTypingMessage
	}
	if s.pending() {
		return ErrPlaceholderPending
	}
	s.messages = append(s.messages, msg)
	return nil
}

// AssignConversationID records the server-assigned id. The id can only go from
// empty to a value; a different id is a *assistant.ProtocolMismatchError.
func (s *Store) AssignConversationID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case id == "":
		return errors.New("empty conversation id")
	case s.id == "":
		s.id = id
		return nil
	case s.id == id:
		return nil
	default:
		return &assistant.ProtocolMismatchError{Sent: s.id, Received: id}
	}
}

// Reset starts a new conversation: no id and a fresh greeting
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedGreeting(true)
}

// ConversationID returns the current id, empty until the first exchange succeeds
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// HasPlaceholder reports whether a reply is pending
func (s *Store) HasPlaceholder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending()
}

// Snapshot returns a copy of the conversation
func (s *Store) Snapshot() assistant.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]assistant.Message, len(s.messages))
	copy(msgs, s.messages)
	return assistant.Conversation{ID: s.id, Messages: msgs}
}

func (s *Store) pending() bool {
	return len(s.messages) > 0 && s.messages[len(s.messages)-1].IsTyping
}

// seedGreeting must be called with mu held
func (s *Store) seedGreeting(fresh bool) {
	if fresh || s.greetingMsg == nil {
		g := assistant.NewLocalMessage(assistant.RoleAssistant, s.greeting, s.now())
		s.greetingMsg = &g
	}
	s.id = ""
	s.messages = []assistant.Message{*s.greetingMsg}
}
