package errors

import (
	"fmt"
	"time"
)

// TimeoutError indicates a collaborator call did not finish in time.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// CollaboratorError wraps a failure reported by an external capability
// such as an event sink, an encryptor or a sync target.
type CollaboratorError struct {
	// Collaborator names the capability ("sink", "encryptor", "syncer").
	Collaborator string
	// Op is the operation that failed.
	Op string
	// Temporary reports whether the collaborator considers the failure recoverable.
	Temporary bool
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
