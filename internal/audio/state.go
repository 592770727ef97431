package audio

import (
	"errors"
	"fmt"
)

// VoiceState is the capture/transcription status of a session
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceRecording
	VoiceTranscribing
)

// String returns the state name
func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceRecording:
		return "recording"
	case VoiceTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("VoiceState(%d)", int(s))
	}
}

// voiceTransitions lists the allowed target states for each state
var voiceTransitions = map[VoiceState][]VoiceState{
	VoiceIdle:         {VoiceRecording},
	VoiceRecording:    {VoiceTranscribing, VoiceIdle},
	VoiceTranscribing: {VoiceIdle},
}

// CanTransition reports whether moving from s to next is allowed
func (s VoiceState) CanTransition(next VoiceState) bool {
	for _, allowed := range voiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidTransition is matched by every *TransitionError
	ErrInvalidTransition = errors.New("invalid voice state transition")

	// ErrRecorderUnavailable is returned when no capture tool or backend exists on this machine
	ErrRecorderUnavailable = errors.New("audio recorder unavailable")
)

// TransitionError is returned when an operation is called in the wrong state
type TransitionError struct {
	Op   string
	From VoiceState
	To   VoiceState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s (wanted %s)", e.Op, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
