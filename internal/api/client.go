// Package api implements the HTTP client of the assistant backend: the text
// exchange, the voice (transcription) exchange, conversation history and the
// health probe. All exchanges share one response contract.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
)

// Preflight is run before a voice clip is uploaded. A non-nil error aborts the upload.
type Preflight interface {
	Check(ctx context.Context) (assistant.DiagnosticsReport, error)
}

// Client talks to the assistant backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	preflight  Preflight
	log        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPreflight sets the connectivity check run before every voice upload
func WithPreflight(p Preflight) Option {
	return func(c *Client) {
		c.preflight = p
	}
}

// WithLogger sets the client logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a backend client for baseURL. An empty token disables the Authorization header.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: newDefaultHTTPClient(),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendText sends typed text and returns the assistant reply
func (c *Client) SendText(ctx context.Context, req assistant.TextRequest) (*assistant.ExchangeResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("message text is empty")
	}

	jsonData, err := json.Marshal(MessageRequest{
		Text:           req.Text,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	var resp ExchangeResponse
	if err := c.do(ctx, http.MethodPost, PathMessages, "application/json", bytes.NewReader(jsonData), &resp); err != nil {
		return nil, err
	}

	return c.toResult(req.ConversationID, resp, false)
}

// SendVoice uploads a recorded clip and returns transcript and assistant reply.
// When a preflight is configured and fails, the clip is never read or transmitted.
func (c *Client) SendVoice(ctx context.Context, req assistant.VoiceRequest) (*assistant.ExchangeResult, error) {
	if c.preflight != nil {
		if _, err := c.preflight.Check(ctx); err != nil {
			c.log.Warn().Err(err).Msg("voice upload aborted by connectivity preflight")
			return nil, err
		}
	}

	body, contentType, err := buildVoiceForm(req)
	if err != nil {
		return nil, err
	}

	var resp ExchangeResponse
	if err := c.do(ctx, http.MethodPost, PathVoiceExchange, contentType, body, &resp); err != nil {
		return nil, err
	}

	return c.toResult(req.ConversationID, resp, true)
}

// ListConversations returns the user's conversations, most recent first
func (c *Client) ListConversations(ctx context.Context) ([]assistant.Conversation, error) {
	var payload []ConversationPayload
	if err := c.do(ctx, http.MethodGet, PathConversations, "", nil, &payload); err != nil {
		return nil, err
	}

	conversations := make([]assistant.Conversation, 0, len(payload))
	for _, p := range payload {
		conv := assistant.Conversation{
			ID:       p.ID,
			Messages: make([]assistant.Message, 0, len(p.Messages)),
		}
		for _, m := range p.Messages {
			conv.Messages = append(conv.Messages, assistant.Message{
				ID:        m.ID,
				Role:      assistant.Role(m.Role),
				Content:   m.Content,
				Timestamp: m.Timestamp,
			})
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// Health calls the backend health endpoint
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.do(ctx, http.MethodGet, PathHealth, "", nil, &resp)
}

// buildVoiceForm encodes the clip and optional conversation id as multipart/form-data
func buildVoiceForm(req assistant.VoiceRequest) (io.Reader, string, error) {
	file, err := os.Open(req.Clip.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio clip: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(FieldAudio, filepath.Base(req.Clip.Path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	if req.ConversationID != "" {
		if err := writer.WriteField(FieldConversationID, req.ConversationID); err != nil {
			return nil, "", fmt.Errorf("failed to write conversation id field: %w", err)
		}
	}
	if req.Clip.SampleRate > 0 {
		if err := writer.WriteField("sampleRate", strconv.Itoa(req.Clip.SampleRate)); err != nil {
			return nil, "", fmt.Errorf("failed to write sample rate field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// toResult validates the response against the request and converts it
func (c *Client) toResult(sentID string, resp ExchangeResponse, voice bool) (*assistant.ExchangeResult, error) {
	if resp.ConversationID == "" {
		return nil, errors.New("malformed response: missing conversationId")
	}
	if sentID != "" && resp.ConversationID != sentID {
		return nil, &assistant.ProtocolMismatchError{Sent: sentID, Received: resp.ConversationID}
	}
	if voice && strings.TrimSpace(resp.Transcript) == "" {
		return nil, assistant.ErrTranscriptionFailed
	}

	result := &assistant.ExchangeResult{
		ConversationID: resp.ConversationID,
		Transcript:     resp.Transcript,
		AssistantReply: resp.AssistantReply,
	}

	// Voice output is optional; a broken payload must not fail the exchange
	if resp.AudioBuffer != "" {
		audio, err := base64.StdEncoding.DecodeString(resp.AudioBuffer)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable audio buffer")
		} else {
			result.SynthesizedAudio = audio
		}
	}

	return result, nil
}

// do sends a request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &assistant.TransportError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &assistant.TransportError{Op: method, URL: url, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// parseAPIError builds an APIError from a non-2xx response body
func parseAPIError(status int, body []byte) error {
	apiErr := &assistant.APIError{StatusCode: status}

	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
