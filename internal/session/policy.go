package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/longkey1/pal/internal/assistant"
)

// Kind is a failure category
type Kind string

const (
	KindPermissionDenied     Kind = "PermissionDenied"
	KindConnectionError      Kind = "ConnectionError"
	KindNetworkError         Kind = "NetworkError"
	KindAuthExpired          Kind = "AuthExpired"
	KindTranscriptionFailure Kind = "TranscriptionFailure"
	KindProtocolMismatch     Kind = "ProtocolMismatch"
	KindUnknownServerError   Kind = "UnknownServerError"
)

// Action is how the chat screen presents a failure
type Action string

const (
	ActionShowInlineError    Action = "show-inline-error"
	ActionShowAlertWithRetry Action = "show-alert-with-retry"
	ActionShowAlertFatal     Action = "show-alert-fatal"
)

// CodeTranscriptionFailed is the error code the backend uses for unrecognized speech
const CodeTranscriptionFailed = "transcription_failed"

// Decision is the classification of one failure
type Decision struct {
	Kind    Kind
	Action  Action
	Message string // User-facing text
}

// Alert reports whether the decision blocks with an alert
func (d Decision) Alert() bool {
	return d.Action != ActionShowInlineError
}

// Retryable reports whether the user may simply try again
func (d Decision) Retryable() bool {
	return d.Action != ActionShowAlertFatal
}

var decisions = map[Kind]Decision{
	KindPermissionDenied: {
		Action:  ActionShowAlertWithRetry,
		Message: "Microphone access is needed to record. Allow it and try again.",
	},
	KindConnectionError: {
		Action:  ActionShowAlertWithRetry,
		Message: "Can't reach the assistant right now.",
	},
	KindNetworkError: {
		Action:  ActionShowInlineError,
		Message: "Message not sent. Check your connection and try again.",
	},
	KindAuthExpired: {
		Action:  ActionShowAlertFatal,
		Message: "Your session has expired. Sign in again to continue.",
	},
	KindTranscriptionFailure: {
		Action:  ActionShowAlertWithRetry,
		Message: "Sorry, I couldn't make that out. Please try again.",
	},
	KindProtocolMismatch: {
		Action:  ActionShowAlertFatal,
		Message: "The conversation got out of sync and was restarted.",
	},
	KindUnknownServerError: {
		Action:  ActionShowInlineError,
		Message: "Something went wrong. Please try again.",
	},
}

// Classify maps an error to its failure kind and presentation. It is a pure function.
func Classify(err error) Decision {
	kind := classifyKind(err)
	d := decisions[kind]
	d.Kind = kind
	return d
}

func classifyKind(err error) Kind {
	var (
		mismatch  *assistant.ProtocolMismatchError
		connErr   *assistant.ConnectionError
		apiErr    *assistant.APIError
		transport *assistant.TransportError
		netErr    net.Error
	)

	switch {
	case errors.As(err, &mismatch):
		return KindProtocolMismatch
	case errors.As(err, &connErr):
		return KindConnectionError
	case errors.Is(err, assistant.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, assistant.ErrTranscriptionFailed):
		return KindTranscriptionFailure
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return KindAuthExpired
		case apiErr.StatusCode == http.StatusUnprocessableEntity, apiErr.Code == CodeTranscriptionFailed:
			return KindTranscriptionFailure
		default:
			return KindUnknownServerError
		}
	case errors.As(err, &transport), errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return KindNetworkError
	default:
		return KindUnknownServerError
	}
}

// Failure is a classified session error
type Failure struct {
	Decision
	Report *assistant.DiagnosticsReport // Set for connection errors
	Err    error
}

func newFailure(err error) *Failure {
	f := &Failure{Decision: Classify(err), Err: err}
	var connErr *assistant.ConnectionError
	if errors.As(err, &connErr) {
		report := connErr.Report
		f.Report = &report
	}
	return f
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
