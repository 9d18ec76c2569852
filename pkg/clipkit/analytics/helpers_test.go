package analytics_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
)

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialIDs returns "evt-1", "evt-2", ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("evt-%d", n.Add(1))
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func debugLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newBatcher creates a batcher that only flushes when told to, closed at test end.
func newBatcher(t *testing.T, sink analytics.Sink, opts ...analytics.Option) *analytics.Batcher {
	t.Helper()
	base := []analytics.Option{
		analytics.WithBatchSize(100),
		analytics.WithFlushInterval(time.Hour),
		analytics.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}
	b := analytics.NewBatcher(sink, append(base, opts...)...)
	t.Cleanup(func() {
		_ = b.Close(context.Background())
	})
	return b
}

func eventNames(events []analytics.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
