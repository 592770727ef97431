package api

import "time"

// Endpoint paths of the assistant backend
const (
	PathConversations = "/conversations"
	PathMessages      = "/messages"
	PathVoiceExchange = "/voice-exchange"
	PathHealth        = "/health"
)

// Multipart field names used by the voice exchange
const (
	FieldAudio          = "audio"
	FieldConversationID = "conversationId"
)

// MessageRequest is the body of POST /messages
type MessageRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ExchangeResponse is the body returned by POST /messages and POST /voice-exchange
type ExchangeResponse struct {
	ConversationID string `json:"conversationId"`
	Transcript     string `json:"transcript,omitempty"`
	AssistantReply string `json:"assistantReply"`
	AudioBuffer    string `json:"audioBuffer,omitempty"` // Base64-encoded synthesized voice
}

// ConversationPayload is one item of GET /conversations
type ConversationPayload struct {
	ID       string           `json:"id"`
	Messages []MessagePayload `json:"messages"`
}

// MessagePayload is one message inside a ConversationPayload
type MessagePayload struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the error body returned on non-2xx responses
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
