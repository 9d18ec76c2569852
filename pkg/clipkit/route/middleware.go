package route

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cerrors "github.com/randalmurphal/clipkit/pkg/clipkit/errors"
)

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// chain applies middleware so the first one registered runs outermost.
func chain(h Handler, mw []Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// RecoveryMiddleware converts a handler panic into an ErrHandlerPanic error.
// The router recovers panics on its own; this is for handlers invoked outside it.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, m Match) (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
				}
			}()
			return next(ctx, m)
		}
	}
}

// TimeoutMiddleware bounds handler execution to d. A handler still running
// at the deadline is abandoned with a *errors.TimeoutError; it keeps its
// canceled context and is expected to return soon after.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, m Match) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			result := make(chan error, 1)
			go func() {
				result <- RecoveryMiddleware()(next)(ctx, m)
			}()

			select {
			case err := <-result:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					return &cerrors.TimeoutError{Operation: "handler " + m.Segment, Duration: d}
				}
				return ctx.Err()
			}
		}
	}
}

// LoggingMiddleware logs handler start and finish at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, m Match) error {
			if logger == nil {
				return next(ctx, m)
			}
			start := time.Now()
			logger.Debug("handler started",
				slog.String("segment", m.Segment),
				slog.Int("params", len(m.Params)),
			)
			err := next(ctx, m)
			attrs := []any{
				slog.String("segment", m.Segment),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.Debug("handler finished", attrs...)
			return err
		}
	}
}
