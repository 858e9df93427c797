package management

import (
	"errors"
	"fmt"
)

var (
	// ErrRestricted is returned when a linked-profile identity asks for a
	// privileged view.
	ErrRestricted = errors.New("management: restricted to privileged sessions")
	// ErrDecided is returned when a linked-profile identity edits a leave request
	// that was already approved or declined.
	ErrDecided = errors.New("management: leave request already decided")
	// ErrProfilePending is returned by views that depend on whether the
	// identity has a linked profile while that lookup is still in flight.
	ErrProfilePending = errors.New("management: linked profile still resolving")
	ErrConfig         = errors.New("management: invalid config")
)

// InputError reports a rejected payload field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("management: invalid input: %s", e.Message)
	}
	return fmt.Sprintf("management: invalid %s: %s", e.Field, e.Message)
}
