package dispatch

import "fmt"

// State is the stage of one dispatch attempt.
type State int

const (
	StateSelecting State = iota
	StateEvaluating
	StateApproved
	StateRejected
	StateExecuting
	StateCommitted
	StatePersistenceFailure
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateEvaluating:
		return "evaluating"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	case StateExecuting:
		return "executing"
	case StateCommitted:
		return "committed"
	case StatePersistenceFailure:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateCommitted || s == StatePersistenceFailure
}

var transitions = map[State][]State{
	StateSelecting:  {StateEvaluating},
	StateEvaluating: {StateApproved, StateRejected},
	StateApproved:   {StateExecuting},
	StateExecuting:  {StateCommitted, StatePersistenceFailure},
}

// Attempt tracks the state of one dispatch attempt. A new attempt always
// starts in StateSelecting.
type Attempt struct {
	ID    string
	state State
	trail []State
}

// NewAttempt starts an attempt in StateSelecting.
func NewAttempt(id string) *Attempt {
	return &Attempt{ID: id, state: StateSelecting, trail: []State{StateSelecting}}
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// Trail returns every state visited so far.
func (a *Attempt) Trail() []State {
	out := make([]State, len(a.trail))
	copy(out, a.trail)
	return out
}

// Transition moves the attempt to next.
func (a *Attempt) Transition(next State) error {
	for _, allowed := range transitions[a.state] {
		if allowed == next {
			a.state = next
			a.trail = append(a.trail, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, next)
}
