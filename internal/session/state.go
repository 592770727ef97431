package session

import "fmt"

// State is the explicit status of a conversation session
type State int

const (
	StateIdle State = iota
	StateSending
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:         {StateSending, StateRecording},
	StateSending:      {StateIdle},
	StateRecording:    {StateTranscribing, StateIdle},
	StateTranscribing: {StateIdle},
}

// CanTransition reports whether moving from s to next is allowed
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
