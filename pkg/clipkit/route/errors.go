package route

import (
	"errors"
	"fmt"
)

// Sentinel errors for routing.
var (
	// ErrMalformedURL indicates a URL with no host or an unparseable query.
	ErrMalformedURL = errors.New("malformed activation URL")

	// ErrActivationRejected indicates the validator refused the URL.
	ErrActivationRejected = errors.New("activation rejected")

	// ErrNoRouteMatched indicates no handler is registered for the first segment.
	ErrNoRouteMatched = errors.New("no route matched")

	// ErrInvalidPattern indicates a pattern that cannot be registered.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrHandlerPanic indicates a handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// DispatchError reports a handler failure for one activation URL.
type DispatchError struct {
	URL     string
	Segment string
	Err     error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s (segment %q): %v", e.URL, e.Segment, e.Err)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
