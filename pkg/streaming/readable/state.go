package readable

import (
	"fmt"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
)

// State is the lifecycle state of a Readable.
type State uint8

const (
	// StatePaused buffers pushed chunks until Read or Resume.
	StatePaused State = iota
	// StateFlowing delivers chunks to subscribers as they arrive.
	StateFlowing
	// StateEnded means end of data was delivered. Terminal except for Destroy.
	StateEnded
	// StateDestroyed is terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateFlowing:
		return "flowing"
	case StateEnded:
		return "ended"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

var transitions = map[State][]State{
	StatePaused:  {StateFlowing, StateEnded, StateDestroyed},
	StateFlowing: {StatePaused, StateEnded, StateDestroyed},
	StateEnded:   {StateDestroyed},
}

// CanTransition reports whether a readable may move from one state to another.
// Staying in the same non-terminal state is always allowed.
func CanTransition(from, to State) bool {
	if from == to {
		return from != StateDestroyed
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transitionLocked moves r to state to, or explains why it cannot.
// Callers hold r.mu.
func (r *Readable) transitionLocked(op string, to State) error {
	from := r.state
	if !CanTransition(from, to) {
		cause := gferrors.ErrInvalidTransition
		if from == StateDestroyed {
			cause = gferrors.ErrDestroyed
		}
		return gferrors.NewOperationError("readable", op, cause).
			WithContext(from.String() + " -> " + to.String())
	}
	if from == to {
		return nil
	}
	r.state = to
	r.metrics.ObserveTransition(r.name, kind, to.String())
	return nil
}
