package route

import (
	"context"
	"sync"
)

// Dispatch is the handle for one asynchronous handler invocation.
type Dispatch struct {
	match  Match
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newDispatch(m Match, cancel context.CancelFunc) *Dispatch {
	return &Dispatch{
		match:  m,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Match returns the route match the handler was invoked with.
func (d *Dispatch) Match() Match {
	return d.match
}

// Done is closed when the handler returns.
func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Err returns the handler's error once Done is closed, nil before.
func (d *Dispatch) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Wait blocks until the handler returns or ctx is done.
// It returns the handler's error, or ctx's error if ctx ends first.
// Waiting does not cancel the handler; use Cancel for that.
func (d *Dispatch) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel cancels the context passed to the handler.
func (d *Dispatch) Cancel() {
	d.cancel()
}

func (d *Dispatch) finish(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	d.cancel()
	close(d.done)
}
