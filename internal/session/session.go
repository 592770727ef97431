// Package session coordinates one conversation: the message store, the text and
// voice exchange paths, playback of synthesized replies and failure classification.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/longkey1/pal/internal/audio"
	"github.com/longkey1/pal/internal/task"
	"github.com/rs/zerolog"
)

var (
	ErrBusy             = errors.New("another exchange is in progress")
	ErrSessionClosed    = errors.New("session closed")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNotRecording     = errors.New("not recording")
	ErrVoiceUnavailable = errors.New("voice input is not available")
	ErrCancelled        = errors.New("exchange cancelled")
)

// cancelledMessage replaces the pending reply of an exchange the user interrupted
const cancelledMessage = "Cancelled."

// Microphone captures clips. *audio.Capture satisfies it.
type Microphone interface {
	RequestPermission(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) (assistant.Clip, error)
	Finish()
	Abort()
	Discard(clip assistant.Clip) error
	State() audio.VoiceState
}

// Player plays synthesized replies. *audio.Playback satisfies it.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Preferences persists the voice output toggle. *prefs.Store satisfies it.
type Preferences interface {
	VoiceOutputEnabled() (bool, error)
	SetVoiceOutputEnabled(enabled bool) error
}

// Config wires a session to its collaborators. Microphone, Player and Prefs are optional.
type Config struct {
	History    assistant.HistorySource
	Text       assistant.TextExchanger
	Voice      assistant.VoiceExchanger
	Microphone Microphone
	Player     Player
	Prefs      Preferences
	Greeting   string
	Logger     zerolog.Logger

	// OnChange is called with a snapshot after every change to the conversation
	OnChange func(assistant.Conversation)
}

// Session is the orchestrator owned by the chat screen
type Session struct {
	store    *Store
	text     assistant.TextExchanger
	voice    assistant.VoiceExchanger
	mic      Microphone
	player   Player
	prefs    Preferences
	tasks    *task.Group
	log      zerolog.Logger
	onChange func(assistant.Conversation)
	now      func() time.Time

	mu          sync.Mutex
	state       State
	closed      bool
	voiceOutput bool
}

// New creates a session. Call Open before use.
func New(cfg Config) *Session {
	return &Session{
		store:    NewStore(cfg.History, cfg.Greeting, cfg.Logger),
		text:     cfg.Text,
		voice:    cfg.Voice,
		mic:      cfg.Microphone,
		player:   cfg.Player,
		prefs:    cfg.Prefs,
		tasks:    task.NewGroup(cfg.Logger),
		log:      cfg.Logger,
		onChange: cfg.OnChange,
		now:      time.Now,
	}
}

// Open hydrates the conversation and loads the voice preference.
// A hydrate error is returned for display only; the session is usable either way.
func (s *Session) Open(ctx context.Context) error {
	if s.prefs != nil {
		enabled, err := s.prefs.VoiceOutputEnabled()
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to load voice preference")
		}
		s.mu.Lock()
		s.voiceOutput = enabled
		s.mu.Unlock()
	}

	err := s.store.Hydrate(ctx)
	s.notify()
	return err
}

// SendText sends typed text and returns the exchange result.
// Failures are returned as *Failure after the pending reply has been resolved into an error message.
func (s *Session) SendText(ctx context.Context, text string) (*assistant.ExchangeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if err := s.begin(StateSending); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.store.Append(assistant.NewLocalMessage(assistant.RoleUser, text, s.now())); err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		return nil, err
	}
	s.store.AppendPlaceholder()
	req := assistant.TextRequest{Text: text, ConversationID: s.store.ConversationID()}
	s.mu.Unlock()
	s.notify()

	res, err := s.text.SendText(ctx, req)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug().Msg("dropping text response after close")
		return nil, ErrSessionClosed
	}
	if err == nil {
		err = s.store.AssignConversationID(res.ConversationID)
	}
	if err != nil {
		s.state = StateIdle
		if s.cancelled(ctx, err) {
			s.mu.Unlock()
			s.notify()
			return nil, ErrCancelled
		}
		f := s.fail(err)
		s.mu.Unlock()
		s.notify()
		return nil, f
	}
	s.store.ResolvePlaceholder(assistant.NewLocalMessage(assistant.RoleAssistant, res.AssistantReply, s.now()))
	s.state = StateIdle
	s.schedulePlayback(res)
	s.mu.Unlock()
	s.notify()

	return res, nil
}

// StartRecording asks for microphone permission and starts capturing
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mic == nil || s.voice == nil {
		return ErrVoiceUnavailable
	}
	if err := s.begin(StateRecording); err != nil {
		return err
	}

	if err := s.mic.RequestPermission(ctx); err != nil {
		s.state = StateIdle
		if errors.Is(err, audio.ErrRecorderUnavailable) {
			return fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
		}
		return newFailure(err)
	}
	if err := s.mic.Start(ctx); err != nil {
		s.state = StateIdle
		return alertOnVoice(newFailure(err))
	}
	return nil
}

// StopRecording finishes the capture and runs the voice exchange.
// Whatever the outcome the microphone returns to idle and the clip is discarded.
func (s *Session) StopRecording(ctx context.Context) (*assistant.ExchangeResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}

	clip, err := s.mic.Stop(ctx)
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		return nil, alertOnVoice(newFailure(err))
	}
	s.state = StateTranscribing
	s.store.AppendPlaceholder()
	req := assistant.VoiceRequest{Clip: clip, ConversationID: s.store.ConversationID()}
	s.mu.Unlock()
	s.notify()

	res, err := s.voice.SendVoice(ctx, req)
	s.discard(clip)

	s.mu.Lock()
	s.mic.Finish()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug().Msg("dropping voice response after close")
		return nil, ErrSessionClosed
	}
	if err == nil {
		err = s.store.AssignConversationID(res.ConversationID)
	}
	if err != nil {
		s.state = StateIdle
		if s.cancelled(ctx, err) {
			s.mu.Unlock()
			s.notify()
			return nil, ErrCancelled
		}
		f := alertOnVoice(s.fail(err))
		s.mu.Unlock()
		s.notify()
		return nil, f
	}

	s.store.ResolvePlaceholder(assistant.NewLocalMessage(assistant.RoleUser, res.Transcript, s.now()))
	if err := s.store.Append(assistant.NewLocalMessage(assistant.RoleAssistant, res.AssistantReply, s.now())); err != nil {
		s.log.Error().Err(err).Msg("failed to append assistant reply")
	}
	s.state = StateIdle
	s.schedulePlayback(res)
	s.mu.Unlock()
	s.notify()

	return res, nil
}

// CancelRecording aborts the current recording without sending it
func (s *Session) CancelRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return ErrNotRecording
	}
	s.mic.Abort()
	s.state = StateIdle
	return nil
}

// NewConversation clears the conversation and starts over with a greeting
func (s *Session) NewConversation() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.store.Reset()
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetVoiceOutput persists whether synthesized replies are played
func (s *Session) SetVoiceOutput(enabled bool) error {
	if s.prefs != nil {
		if err := s.prefs.SetVoiceOutputEnabled(enabled); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.voiceOutput = enabled
	s.mu.Unlock()
	return nil
}

// VoiceOutput reports whether synthesized replies are played
func (s *Session) VoiceOutput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceOutput
}

// State returns the session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conversation returns a snapshot of the conversation
func (s *Session) Conversation() assistant.Conversation {
	return s.store.Snapshot()
}

// Close tears the session down. Responses arriving afterwards are dropped
// and an active recording is aborted. Background tasks keep running.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.state == StateRecording {
		s.mic.Abort()
		s.state = StateIdle
	}
}

// Wait blocks until background playback and cleanup tasks have finished
func (s *Session) Wait() {
	s.tasks.Wait()
}

// begin must be called with mu held
func (s *Session) begin(next State) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.state.CanTransition(next) {
		return ErrBusy
	}
	s.state = next
	return nil
}

// fail classifies err and updates the conversation. Must be called with mu held.
func (s *Session) fail(err error) *Failure {
	f := newFailure(err)
	if f.Kind == KindProtocolMismatch {
		s.log.Error().Err(err).Msg("conversation id changed mid-session, resetting conversation")
		s.store.Reset()
		return f
	}

	s.log.Warn().Err(err).Str("kind", string(f.Kind)).Msg("exchange failed")
	s.store.ResolvePlaceholder(assistant.NewLocalMessage(assistant.RoleAssistant, f.Message, s.now()))
	return f
}

// alertOnVoice raises an inline decision to a retryable alert. Voice failures always block.
func alertOnVoice(f *Failure) *Failure {
	if !f.Alert() {
		f.Action = ActionShowAlertWithRetry
	}
	return f
}

// cancelled resolves the pending reply when the caller gave up on the exchange.
// Must be called with mu held.
func (s *Session) cancelled(ctx context.Context, err error) bool {
	if ctx.Err() == nil || !errors.Is(err, context.Canceled) {
		return false
	}
	s.log.Debug().Err(err).Msg("exchange cancelled")
	s.store.ResolvePlaceholder(assistant.NewLocalMessage(assistant.RoleAssistant, cancelledMessage, s.now()))
	return true
}

// schedulePlayback must be called with mu held
func (s *Session) schedulePlayback(res *assistant.ExchangeResult) *task.Handle {
	if !s.voiceOutput || s.player == nil || !res.HasAudio() {
		return nil
	}
	payload := res.SynthesizedAudio
	return s.tasks.Go("playback", func(ctx context.Context) error {
		return s.player.Play(ctx, payload)
	})
}

func (s *Session) discard(clip assistant.Clip) *task.Handle {
	return s.tasks.Go("discard clip", func(ctx context.Context) error {
		return s.mic.Discard(clip)
	})
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.store.Snapshot())
	}
}
