package errors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig describes how a failing collaborator call is repeated.
type RetryConfig struct {
	// MaxAttempts counts every call, the first included. Values below 1 mean 1.
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration
	// BackoffFactor multiplies the wait after each retry. Values below 1 mean 1.
	BackoffFactor float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64

	// Retryable overrides IsRetryable.
	Retryable func(error) bool
	// OnRetry runs before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry is sized for sink deliveries: a few quick attempts so a
// flush never stalls the batcher for long.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2,
	Jitter:         0.1,
}

// NoRetry makes a single attempt.
var NoRetry = RetryConfig{MaxAttempts: 1}

// Delay returns the wait after failed attempt n (1-based), before jitter.
func (c RetryConfig) Delay(n int) time.Duration {
	if n < 1 || c.InitialBackoff <= 0 {
		return 0
	}
	factor := max(c.BackoffFactor, 1)
	d := float64(c.InitialBackoff) * math.Pow(factor, float64(n-1))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

func (c RetryConfig) jittered(d time.Duration) time.Duration {
	if c.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * c.Jitter * (2*rand.Float64() - 1)
	return time.Duration(float64(d) + spread)
}

func (c RetryConfig) retryable(err error) bool {
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return IsRetryable(err)
}

// Retry calls op until it succeeds, fails with a non-retryable error, runs
// out of attempts, or ctx ends. It reports how many calls were made.
//
// Every returned error is a *CategorizedError wrapping the last failure, or
// the context error when ctx ended first.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) (attempts int, err error) {
	limit := max(cfg.MaxAttempts, 1)

	for attempts < limit {
		if cerr := ctx.Err(); cerr != nil {
			return attempts, Permanent(cerr, "cancelled before attempt")
		}

		attempts++
		err = op(ctx)
		if err == nil {
			return attempts, nil
		}
		if !cfg.retryable(err) {
			return attempts, &CategorizedError{Err: err, Category: Categorize(err), Retries: attempts}
		}
		if attempts == limit {
			break
		}

		wait := cfg.jittered(cfg.Delay(attempts))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempts, err, wait)
		}
		if werr := sleep(ctx, wait); werr != nil {
			return attempts, Permanent(werr, "cancelled during backoff")
		}
	}

	return attempts, &CategorizedError{
		Err:      err,
		Category: Categorize(err),
		Retries:  attempts,
		Context:  "gave up",
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
