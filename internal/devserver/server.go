// Package devserver is an in-memory reference backend for the assistant API.
// It echoes typed text, describes uploaded clips instead of transcribing them
// and can attach a short synthesized tone to every reply.
package devserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/longkey1/pal/internal/api"
	"github.com/longkey1/pal/internal/assistant"
	"github.com/longkey1/pal/internal/audio"
	"github.com/rs/zerolog"
)

const wavHeaderSize = 44

// Options configures the reference backend
type Options struct {
	// Token is the required bearer token. Empty disables authentication.
	Token string
	// Synthesize attaches a WAV tone to every reply
	Synthesize bool
	Logger     zerolog.Logger
}

type conversation struct {
	id        string
	messages  []api.MessagePayload
	updatedAt time.Time
}

// Server holds conversations in memory
type Server struct {
	token      string
	synthesize bool
	log        zerolog.Logger
	now        func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// New creates a reference backend
func New(opts Options) *Server {
	return &Server{
		token:         opts.Token,
		synthesize:    opts.Synthesize,
		log:           opts.Logger,
		now:           time.Now,
		conversations: make(map[string]*conversation),
	}
}

// Echo returns an echo instance with every route registered
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET(api.PathHealth, s.Health)
	e.GET(api.PathConversations, s.ListConversations, s.requireToken)
	e.POST(api.PathMessages, s.PostMessage, s.requireToken)
	e.POST(api.PathVoiceExchange, s.PostVoiceExchange, s.requireToken)
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	e := s.Echo()

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Health returns health status.
// GET /health
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// ListConversations returns every conversation, most recently updated first.
// GET /conversations
func (s *Server) ListConversations(c echo.Context) error {
	s.mu.Lock()
	convs := make([]*conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, conv)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].updatedAt.After(convs[j].updatedAt)
	})

	out := make([]api.ConversationPayload, 0, len(convs))
	for _, conv := range convs {
		msgs := make([]api.MessagePayload, len(conv.messages))
		copy(msgs, conv.messages)
		out = append(out, api.ConversationPayload{ID: conv.id, Messages: msgs})
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, out)
}

// PostMessage appends a typed message and an echo reply.
// POST /messages
func (s *Server) PostMessage(c echo.Context) error {
	var req api.MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "text is required"})
	}

	return s.exchange(c, req.ConversationID, req.Text, "", fmt.Sprintf("You said: %s", req.Text))
}

// PostVoiceExchange accepts a WAV clip and replies with a description of it.
// POST /voice-exchange
func (s *Server) PostVoiceExchange(c echo.Context) error {
	file, err := c.FormFile(api.FieldAudio)
	if err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "audio file is required"})
	}

	samples := file.Size - wavHeaderSize
	if samples <= 0 {
		return c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Error: "no speech detected",
			Code:  "transcription_failed",
		})
	}

	bytesPerSecond := float64(assistant.CaptureSampleRate * assistant.CaptureChannels * assistant.CaptureBitsPerSample / 8)
	transcript := fmt.Sprintf("(voice message, %.1f seconds)", float64(samples)/bytesPerSecond)

	return s.exchange(c, c.FormValue(api.FieldConversationID), transcript, transcript,
		fmt.Sprintf("I received your %s.", transcript))
}

func (s *Server) exchange(c echo.Context, conversationID, userText, transcript, reply string) error {
	s.mu.Lock()
	conv, err := s.conversation(conversationID)
	if err != nil {
		s.mu.Unlock()
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	}

	now := s.now().UTC()
	conv.messages = append(conv.messages,
		api.MessagePayload{ID: uuid.New().String(), Role: string(assistant.RoleUser), Content: userText, Timestamp: now},
		api.MessagePayload{ID: uuid.New().String(), Role: string(assistant.RoleAssistant), Content: reply, Timestamp: now},
	)
	conv.updatedAt = now
	id := conv.id
	s.mu.Unlock()

	resp := api.ExchangeResponse{
		ConversationID: id,
		Transcript:     transcript,
		AssistantReply: reply,
	}
	if s.synthesize {
		resp.AudioBuffer = base64.StdEncoding.EncodeToString(tone(440, 300*time.Millisecond))
	}
	return c.JSON(http.StatusOK, resp)
}

// conversation must be called with mu held
func (s *Server) conversation(id string) (*conversation, error) {
	if id == "" {
		conv := &conversation{id: uuid.New().String()}
		s.conversations[conv.id] = conv
		return conv, nil
	}
	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return conv, nil
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.token != "" && c.Request().Header.Get("Authorization") != "Bearer "+s.token {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid or expired token"})
		}
		return next(c)
	}
}

// tone renders a sine wave as a 16 kHz mono WAV
func tone(freq float64, d time.Duration) []byte {
	n := int(d.Seconds() * assistant.CaptureSampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(2*math.Pi*freq*float64(i)/assistant.CaptureSampleRate) * 0.3 * math.MaxInt16)
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}
	return audio.PCMToWAV(pcm, assistant.CaptureSampleRate, assistant.CaptureChannels)
}
