package writable

import (
	"fmt"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
)

// State is the lifecycle state of a Writable.
type State uint8

const (
	// StateOpen accepts writes.
	StateOpen State = iota
	// StateEnding rejects writes and waits for pending ones to complete.
	StateEnding
	// StateFinished means every write completed and the Final hook succeeded.
	StateFinished
	// StateDestroyed is terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateEnding:
		return "ending"
	case StateFinished:
		return "finished"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// CanTransition reports whether a writable may move between two states.
func CanTransition(from, to State) bool {
	switch to {
	case StateDestroyed:
		return from != StateDestroyed
	case StateEnding:
		return from == StateOpen
	case StateFinished:
		return from == StateEnding
	default:
		return false
	}
}

// Callers hold w.mu.
func (w *Writable) transitionLocked(op string, to State) error {
	from := w.state
	if !CanTransition(from, to) {
		cause := gferrors.ErrInvalidTransition
		if from == StateDestroyed {
			cause = gferrors.ErrDestroyed
		}
		return gferrors.NewOperationError(kind, op, cause).
			WithContext(from.String() + " -> " + to.String())
	}
	w.state = to
	w.metrics.ObserveTransition(w.name, kind, to.String())
	return nil
}
