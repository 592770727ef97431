package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	convs []assistant.Conversation
	err   error
	calls int
}

func (f *fakeHistory) ListConversations(ctx context.Context) ([]assistant.Conversation, error) {
	f.calls++
	return f.convs, f.err
}

func newTestStore(history assistant.HistorySource) *Store {
	return NewStore(history, "Hello there", zerolog.Nop())
}

func assertTypingInvariant(t *testing.T, conv assistant.Conversation) {
	t.Helper()
	for i, m := range conv.Messages {
		if m.IsTyping {
			assert.Equal(t, len(conv.Messages)-1, i, "typing message must be last")
		}
	}
}

func TestHydrateEmptyBackend(t *testing.T) {
	s := newTestStore(&fakeHistory{})

	require.NoError(t, s.Hydrate(context.Background()))

	conv := s.Snapshot()
	assert.Empty(t, conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, assistant.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, "Hello there", conv.Messages[0].Content)
}

func TestHydrateEmptyConversation(t *testing.T) {
	s := newTestStore(&fakeHistory{convs: []assistant.Conversation{{ID: "c9"}}})

	require.NoError(t, s.Hydrate(context.Background()))

	conv := s.Snapshot()
	assert.Empty(t, conv.ID)
	assert.Len(t, conv.Messages, 1)
}

func TestHydrateLoadsLatestVerbatim(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	latest := assistant.Conversation{
		ID: "c1",
		Messages: []assistant.Message{
			{ID: "m1", Role: assistant.RoleUser, Content: "Hello", Timestamp: at},
			{ID: "m2", Role: assistant.RoleAssistant, Content: "Hi!", Timestamp: at.Add(time.Second)},
		},
	}
	older := assistant.Conversation{ID: "c0", Messages: []assistant.Message{{ID: "x", Content: "old"}}}
	s := newTestStore(&fakeHistory{convs: []assistant.Conversation{latest, older}})

	require.NoError(t, s.Hydrate(context.Background()))

	assert.Equal(t, latest, s.Snapshot())
}

func TestHydrateFailureFallsBackToGreeting(t *testing.T) {
	fetchErr := errors.New("connection refused")
	s := newTestStore(&fakeHistory{err: fetchErr})

	err := s.Hydrate(context.Background())
	assert.ErrorIs(t, err, fetchErr)

	conv := s.Snapshot()
	assert.Empty(t, conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Hello there", conv.Messages[0].Content)
}

func TestHydrateIsIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		history *fakeHistory
	}{
		{name: "greeting", history: &fakeHistory{}},
		{name: "fetch failure", history: &fakeHistory{err: errors.New("offline")}},
		{name: "existing conversation", history: &fakeHistory{convs: []assistant.Conversation{{
			ID:       "c1",
			Messages: []assistant.Message{{ID: "m1", Role: assistant.RoleUser, Content: "Hello"}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(tt.history)
			_ = s.Hydrate(context.Background())
			first := s.Snapshot()
			_ = s.Hydrate(context.Background())
			assert.Equal(t, first, s.Snapshot())
		})
	}
}

func TestHydrateNilHistory(t *testing.T) {
	s := newTestStore(nil)
	require.NoError(t, s.Hydrate(context.Background()))
	assert.Len(t, s.Snapshot().Messages, 1)
}

func TestPlaceholderInvariant(t *testing.T) {
	s := newTestStore(&fakeHistory{})
	require.NoError(t, s.Hydrate(context.Background()))

	s.AppendPlaceholder()
	s.AppendPlaceholder()

	conv := s.Snapshot()
	require.Len(t, conv.Messages, 2)
	assert.True(t, conv.Messages[1].IsTyping)
	assert.Equal(t, assistant.TypingContent, conv.Messages[1].Content)
	assertTypingInvariant(t, conv)

	err := s.Append(assistant.NewLocalMessage(assistant.RoleUser, "late", time.Now()))
	assert.ErrorIs(t, err, ErrPlaceholderPending)
	assert.Len(t, s.Snapshot().Messages, 2)
}

func TestAppendRejectsTypingMessages(t *testing.T) {
	s := newTestStore(&fakeHistory{})

	err := s.Append(assistant.NewPlaceholder(time.Now()))
	assert.ErrorIs(t, err, ErrTypingMessage)
	assert.False(t, s.HasPlaceholder())
}

func TestResolvePlaceholderExactlyOnce(t *testing.T) {
	s := newTestStore(&fakeHistory{})
	require.NoError(t, s.Hydrate(context.Background()))
	s.AppendPlaceholder()

	reply := assistant.NewLocalMessage(assistant.RoleAssistant, "Hi!", time.Now())
	assert.True(t, s.ResolvePlaceholder(reply))
	assert.False(t, s.ResolvePlaceholder(assistant.NewLocalMessage(assistant.RoleAssistant, "again", time.Now())))

	conv := s.Snapshot()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, reply, conv.Messages[1])
	assert.False(t, s.HasPlaceholder())
}

func TestResolvePlaceholderClearsTypingFlag(t *testing.T) {
	s := newTestStore(&fakeHistory{})
	s.AppendPlaceholder()

	msg := assistant.NewLocalMessage(assistant.RoleAssistant, "done", time.Now())
	msg.IsTyping = true
	require.True(t, s.ResolvePlaceholder(msg))
	assert.False(t, s.HasPlaceholder())
}

func TestAssignConversationID(t *testing.T) {
	tests := []struct {
		name         string
		current      string
		assign       string
		wantID       string
		wantMismatch bool
		wantErr      bool
	}{
		{name: "first assignment", current: "", assign: "c1", wantID: "c1"},
		{name: "same id", current: "c1", assign: "c1", wantID: "c1"},
		{name: "different id", current: "c1", assign: "c2", wantID: "c1", wantMismatch: true, wantErr: true},
		{name: "empty id", current: "", assign: "", wantID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(&fakeHistory{})
			if tt.current != "" {
				require.NoError(t, s.AssignConversationID(tt.current))
			}

			err := s.AssignConversationID(tt.assign)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			var mismatch *assistant.ProtocolMismatchError
			assert.Equal(t, tt.wantMismatch, errors.As(err, &mismatch))
			assert.Equal(t, tt.wantID, s.ConversationID())
		})
	}
}

func TestResetSeedsFreshGreeting(t *testing.T) {
	s := newTestStore(&fakeHistory{})
	require.NoError(t, s.Hydrate(context.Background()))
	before := s.Snapshot().Messages[0]

	require.NoError(t, s.AssignConversationID("c1"))
	require.NoError(t, s.Append(assistant.NewLocalMessage(assistant.RoleUser, "Hello", time.Now())))
	s.AppendPlaceholder()

	s.Reset()

	conv := s.Snapshot()
	assert.Empty(t, conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Hello there", conv.Messages[0].Content)
	assert.NotEqual(t, before.ID, conv.Messages[0].ID)
	assert.False(t, s.HasPlaceholder())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore(&fakeHistory{})
	require.NoError(t, s.Hydrate(context.Background()))

	conv := s.Snapshot()
	conv.Messages[0].Content = "mutated"

	assert.Equal(t, "Hello there", s.Snapshot().Messages[0].Content)
}
