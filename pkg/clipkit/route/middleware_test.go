package route_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/randalmurphal/clipkit/pkg/clipkit/errors"
	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
)

func TestRouter_MiddlewareOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	mark := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	named := func(name string) route.Middleware {
		return func(next route.Handler) route.Handler {
			return func(ctx context.Context, m route.Match) error {
				mark(name + ">")
				err := next(ctx, m)
				mark("<" + name)
				return err
			}
		}
	}

	r := route.New()
	r.Use(named("outer"), named("inner"))
	r.RegisterHandler("a", func(context.Context, route.Match) error {
		mark("handler")
		return nil
	})

	_, err := dispatchAndWait(t, r, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, order)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := route.RecoveryMiddleware()(func(context.Context, route.Match) error {
		panic("boom")
	})

	err := h(context.Background(), route.Match{})
	assert.ErrorIs(t, err, route.ErrHandlerPanic)
}

func TestTimeoutMiddleware(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := route.TimeoutMiddleware(10 * time.Millisecond)(func(ctx context.Context, _ route.Match) error {
		<-release
		return nil
	})

	err := h(context.Background(), route.Match{Segment: "slow"})

	var te *cerrors.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "handler slow", te.Operation)
	assert.Equal(t, 10*time.Millisecond, te.Duration)
	assert.True(t, cerrors.IsRetryable(err))
}

func TestTimeoutMiddleware_FastHandler(t *testing.T) {
	h := route.TimeoutMiddleware(time.Second)(func(context.Context, route.Match) error {
		return nil
	})
	assert.NoError(t, h(context.Background(), route.Match{}))
}

func TestTimeoutMiddleware_ParentCanceled(t *testing.T) {
	h := route.TimeoutMiddleware(time.Second)(func(ctx context.Context, _ route.Match) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h(ctx, route.Match{}), context.Canceled)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := route.LoggingMiddleware(logger)(func(context.Context, route.Match) error { return nil })
	require.NoError(t, h(context.Background(), route.Match{Segment: "product"}))

	out := buf.String()
	assert.Contains(t, out, "handler started")
	assert.Contains(t, out, "handler finished")
	assert.Contains(t, out, "segment=product")
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	h := route.LoggingMiddleware(nil)(func(context.Context, route.Match) error { return nil })
	assert.NoError(t, h(context.Background(), route.Match{}))
}
