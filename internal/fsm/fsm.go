// Package fsm defines the microphone session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

const (
	EventStart   Event = "start"
	EventPartial Event = "partial"
	EventFinal   Event = "final"
	EventError   Event = "error"
	EventEnd     Event = "end"
	EventStop    Event = "stop"
)

// Transition applies event to current. Engine termination events (error, end)
// are accepted from idle so duplicate or late notifications are harmless.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		case EventError, EventEnd:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventPartial:
			return StateListening, nil
		case EventFinal, EventError, EventEnd, EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
