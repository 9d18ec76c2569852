package analytics

import (
	"errors"
	"fmt"
)

// Sentinel errors for analytics.
var (
	// ErrNoOpenFunnel indicates a step recorded with no funnel open.
	ErrNoOpenFunnel = errors.New("no open funnel")

	// ErrFunnelNotStarted indicates completing or abandoning a funnel that isn't open.
	ErrFunnelNotStarted = errors.New("funnel not started")

	// ErrBatcherClosed indicates tracking after Close.
	ErrBatcherClosed = errors.New("batcher closed")

	// ErrEmptyEventName indicates an event with no name.
	ErrEmptyEventName = errors.New("empty event name")

	// ErrUnsupportedValue indicates a property value that isn't a string, number or boolean.
	ErrUnsupportedValue = errors.New("unsupported property value")
)

// FunnelWarning reports funnel misuse. It is logged and returned, but the
// tracker's state is unchanged and callers are free to ignore it.
type FunnelWarning struct {
	Op     string
	Funnel string
	Err    error
}

// Error implements the error interface.
func (w *FunnelWarning) Error() string {
	if w.Funnel == "" {
		return fmt.Sprintf("%s: %v", w.Op, w.Err)
	}
	return fmt.Sprintf("%s %q: %v", w.Op, w.Funnel, w.Err)
}

// Unwrap returns the underlying error.
func (w *FunnelWarning) Unwrap() error {
	return w.Err
}

// FlushError reports a batch the sink did not accept.
// The batch stays buffered and is retried on the next flush.
type FlushError struct {
	Events   int
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %d events failed after %d attempts: %v", e.Events, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *FlushError) Unwrap() error {
	return e.Err
}
