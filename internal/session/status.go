package session

import (
	"errors"
	"fmt"
)

// Status is the top-level state of the coordinator.
type Status int

const (
	StatusSetup Status = iota
	StatusRecording
	StatusPaused
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusRecording:
		return "recording"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	default:
		return "setup"
	}
}

// MarshalText renders the status as its name in JSON and YAML.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusSetup, StatusRecording, StatusPaused, StatusCompleted} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Event is an input to the transition function.
type Event int

const (
	EventStart Event = iota
	EventPause
	EventResume
	EventAdvance
	EventPrevious
	EventStop
	EventRestart
	EventExpired
	EventTick
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventAdvance:
		return "advance"
	case EventPrevious:
		return "previous"
	case EventStop:
		return "stop"
	case EventRestart:
		return "restart"
	case EventExpired:
		return "expired"
	case EventTick:
		return "tick"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoPermission      = errors.New("camera and microphone access has not been granted")
	ErrNoQuestions       = errors.New("no questions configured")
	ErrClosed            = errors.New("session closed")
)

func invalid(ev Event, st Status) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, ev, st)
}
