package assistant

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrPermissionDenied is returned when microphone access is refused
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrTranscriptionFailed is returned when the server processed a clip but produced no transcript
	ErrTranscriptionFailed = errors.New("no speech recognized in the recording")
)

// TransportError represents a failure while a request was in flight
// (DNS, timeouts, connection reset, TLS handshake, truncated body).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a non-2xx response from the assistant backend
type APIError struct {
	StatusCode int
	Code       string // Machine-readable code from the body, if any
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// ConnectionError is returned when the pre-flight connectivity probe fails.
// The clip was not transmitted.
type ConnectionError struct {
	Report DiagnosticsReport
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach %s (network connected: %t, server reachable: %t)",
		redactURLUserInfo(e.Report.APIBaseURL), e.Report.NetworkConnected, e.Report.ServerReachable)
}

// ProtocolMismatchError is returned when a response names a different conversation than the request
type ProtocolMismatchError struct {
	Sent     string
	Received string
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("conversation id mismatch: sent %q, received %q", e.Sent, e.Received)
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
