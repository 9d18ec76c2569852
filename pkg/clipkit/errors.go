package clipkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session lifecycle.
var (
	// ErrInitializationFailed indicates configuration load or a component
	// initializer failed. The session stays in StateInitializing and
	// Initialize may be called again.
	ErrInitializationFailed = errors.New("session initialization failed")

	// ErrSessionTerminated indicates the session was handed off. Create a new
	// session to process further activations.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrNotReady indicates an operation was attempted before Initialize
	// succeeded.
	ErrNotReady = errors.New("session not ready")

	// ErrInvalidTransition indicates a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StateError reports an operation refused because of the session state.
type StateError struct {
	// Op is the refused operation ("initialize", "dispatch", "handoff").
	Op string
	// State is the state the session was in.
	State State
	// Err is ErrSessionTerminated, ErrNotReady or ErrInvalidTransition.
	Err error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s in state %s: %v", e.Op, e.State, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StateError) Unwrap() error {
	return e.Err
}

// ComponentError wraps a failure from one component during initialization.
type ComponentError struct {
	// Component names the failing component ("config", "router", "analytics", "store").
	Component string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ComponentError) Unwrap() error {
	return e.Err
}
