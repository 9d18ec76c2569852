package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordDispatch(ctx, "p", OutcomeDispatched)
		m.RecordHandler(ctx, "p", time.Second, errors.New("x"))
		m.RecordFlush(ctx, 1, nil)
		m.RecordDropped(ctx, 1)
		m.RecordFunnel(ctx, "f", "completed")
		m.RecordStoreOp(ctx, "store", nil)
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartSessionSpan(ctx, "initialize", "s")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = sm.StartDispatchSpan(ctx, "u")
	assert.Equal(t, ctx, got)
	sm.EndSpanWithError(span, errors.New("x"))

	got, _ = sm.StartFlushSpan(ctx, 3)
	assert.Equal(t, ctx, got)
	sm.AddSpanEvent(ctx, "e")
}
