package settlement

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ValidationError reports construction or mutation input that violates a
// domain invariant. The caller assembled bad data; retrying is pointless.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TransitionError reports an operation applied in a state that does not
// allow it. It signals an ordering bug in the orchestrating workflow.
type TransitionError struct {
	Entity string
	State  string
	Op     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", e.Entity, e.Op, e.State)
}
