// Package assistant provides the core types shared by the conversational session engine.
// It defines the message and conversation model, the exchange request/response contract
// shared by the text and voice paths, and the error types every layer reports with.
package assistant

import (
	"context"
	"time"
)

// Audio capture parameters. Transcription quality depends on every clip using them.
const (
	CaptureSampleRate    = 16000
	CaptureChannels      = 1
	CaptureBitsPerSample = 16
)

// Clip is an opaque handle to a recorded audio clip on local storage
type Clip struct {
	Path          string        // Temporary file holding the clip
	SampleRate    int           // Hz
	Channels      int           // Channel count
	BitsPerSample int           // Sample width
	Duration      time.Duration // Wall-clock recording duration
}

// TextRequest is the input of a typed-text exchange
type TextRequest struct {
	Text           string
	ConversationID string // Empty when the conversation has not been created yet
}

// VoiceRequest is the input of a voice exchange
type VoiceRequest struct {
	Clip           Clip
	ConversationID string // Empty when the conversation has not been created yet
}

// ExchangeResult is the response contract shared by the text and voice paths
type ExchangeResult struct {
	ConversationID   string
	Transcript       string // Present only on the voice path
	AssistantReply   string
	SynthesizedAudio []byte // Optional synthesized voice of the reply
}

// HasAudio reports whether the result carries a synthesized voice payload
func (r *ExchangeResult) HasAudio() bool {
	return r != nil && len(r.SynthesizedAudio) > 0
}

// DiagnosticsReport explains why a connectivity probe failed. It is never persisted.
type DiagnosticsReport struct {
	NetworkConnected bool   `json:"networkConnected"`
	ServerReachable  bool   `json:"serverReachable"`
	APIBaseURL       string `json:"apiBaseUrl"`
}

// OK reports whether the probe found both the network and the server
func (r DiagnosticsReport) OK() bool {
	return r.NetworkConnected && r.ServerReachable
}

// TextExchanger sends typed text and returns the assistant reply.
type TextExchanger interface {
	SendText(ctx context.Context, req TextRequest) (*ExchangeResult, error)
}

// VoiceExchanger uploads a captured clip and returns transcript and reply.
type VoiceExchanger interface {
	SendVoice(ctx context.Context, req VoiceRequest) (*ExchangeResult, error)
}

// HistorySource lists the user's conversations, most recent first.
type HistorySource interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
}
