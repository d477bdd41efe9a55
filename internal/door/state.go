package door

import (
	"fmt"
	"net/http"
)

// State is the classified door position.
//
// The integer values are stable and appear in telemetry.
type State int

// Door states.
const (
	StateIOFailure State = -1
	StateOpen      State = 0
	StateMoving    State = 1
	StateClosed    State = 2
)

// Classify maps roll in degrees to a door state.
//
// Only roll participates. The open intervals leave 10, [10,11], 85, 105,
// 180 and everything ≤ 0 unclassified, and those return StateIOFailure.
func Classify(roll float64) State {
	switch {
	case roll > 0 && roll < 10:
		return StateOpen
	case (roll > 11 && roll < 85) || (roll > 105 && roll < 180):
		return StateMoving
	case roll > 85 && roll < 105:
		return StateClosed
	default:
		return StateIOFailure
	}
}

// String returns the lower-case state name used in JSON and MQTT payloads.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateMoving:
		return "moving"
	case StateClosed:
		return "closed"
	case StateIOFailure:
		return "io_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Body returns the plain-text HTTP body for the state.
func (s State) Body() string {
	switch s {
	case StateOpen:
		return "Open\n"
	case StateMoving:
		return "Moving ...\n"
	case StateClosed:
		return "Closed\n"
	default:
		return "I/O Failure\n"
	}
}

// HTTPStatus returns the HTTP status code for the state.
func (s State) HTTPStatus() int {
	switch s {
	case StateOpen, StateMoving, StateClosed:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	switch name {
	case "open":
		return StateOpen, nil
	case "moving":
		return StateMoving, nil
	case "closed":
		return StateClosed, nil
	case "io_failure":
		return StateIOFailure, nil
	default:
		return StateIOFailure, fmt.Errorf("door: unknown state %q", name)
	}
}
