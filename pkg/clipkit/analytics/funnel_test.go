package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
)

func eventsNamed(events []analytics.Event, name string) []analytics.Event {
	var out []analytics.Event
	for _, e := range events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTracker(t *testing.T, opts ...analytics.Option) (*analytics.Tracker, *analytics.Batcher, *analytics.MemorySink, *testClock) {
	t.Helper()
	clock := newTestClock()
	sink := analytics.NewMemorySink()
	b := newBatcher(t, sink, append([]analytics.Option{analytics.WithClock(clock.Now)}, opts...)...)
	var logs syncBuffer
	tr := analytics.NewTracker(b, analytics.WithTrackerLogger(debugLogger(&logs)))
	return tr, b, sink, clock
}

func TestTracker_CompleteFunnel(t *testing.T) {
	tr, b, sink, clock := newTracker(t)

	tr.StartFunnel("f")
	require.NoError(t, tr.TrackFunnelStep("a"))
	clock.Advance(3 * time.Second)
	require.NoError(t, tr.TrackFunnelStep("b"))
	require.NoError(t, tr.CompleteFunnel("f", 10.0))

	err := tr.CompleteFunnel("f", 99)
	var w *analytics.FunnelWarning
	require.ErrorAs(t, err, &w)
	assert.ErrorIs(t, err, analytics.ErrFunnelNotStarted)
	assert.Equal(t, "f", w.Funnel)

	require.NoError(t, b.Flush(context.Background()))
	completed := eventsNamed(sink.Events(), analytics.EventFunnelCompleted)
	require.Len(t, completed, 1)

	rec := completed[0].Funnel
	require.NotNil(t, rec)
	assert.Equal(t, "f", rec.Name)
	assert.Equal(t, []string{"a", "b"}, rec.Steps)
	assert.Equal(t, 10.0, rec.Value)
	assert.Equal(t, analytics.OutcomeCompleted, rec.Outcome)
	assert.Equal(t, 3*time.Second, rec.Duration)

	assert.Equal(t, analytics.String("f"), completed[0].Properties["funnel"])
	assert.Equal(t, analytics.Number(10), completed[0].Properties["value"])
	assert.Equal(t, analytics.Int(2), completed[0].Properties["steps"])

	assert.Empty(t, tr.OpenFunnels())
}

func TestTracker_StepWithoutOpenFunnel(t *testing.T) {
	clock := newTestClock()
	sink := analytics.NewMemorySink()
	b := newBatcher(t, sink, analytics.WithClock(clock.Now))
	var logs syncBuffer
	tr := analytics.NewTracker(b, analytics.WithTrackerLogger(debugLogger(&logs)))

	err := tr.TrackFunnelStep("orphan")
	assert.ErrorIs(t, err, analytics.ErrNoOpenFunnel)
	assert.Contains(t, logs.String(), "funnel state warning")
	assert.Equal(t, 0, b.Pending(), "misuse emits nothing")
}

func TestTracker_StepGoesToMostRecentFunnel(t *testing.T) {
	tr, _, _, _ := newTracker(t)

	tr.StartFunnel("onboarding")
	tr.StartFunnel("checkout")
	require.NoError(t, tr.TrackFunnelStep("cart"))

	steps, ok := tr.Steps("checkout")
	require.True(t, ok)
	assert.Equal(t, []string{"cart"}, steps)

	require.NoError(t, tr.CompleteFunnel("checkout", 5))
	require.NoError(t, tr.TrackFunnelStep("welcome"))

	steps, ok = tr.Steps("onboarding")
	require.True(t, ok)
	assert.Equal(t, []string{"welcome"}, steps)
	assert.Equal(t, []string{"onboarding"}, tr.OpenFunnels())
}

func TestTracker_DuplicateStepsPreserved(t *testing.T) {
	tr, _, _, _ := newTracker(t)

	tr.StartFunnel("f")
	for _, s := range []string{"a", "b", "a", "a"} {
		require.NoError(t, tr.TrackFunnelStep(s))
	}

	steps, _ := tr.Steps("f")
	assert.Equal(t, []string{"a", "b", "a", "a"}, steps)
}

func TestTracker_RestartResetsAndAbandons(t *testing.T) {
	tr, b, sink, _ := newTracker(t)

	tr.StartFunnel("f")
	require.NoError(t, tr.TrackFunnelStep("a"))
	tr.StartFunnel("f")
	require.NoError(t, tr.TrackFunnelStep("b"))
	require.NoError(t, tr.CompleteFunnel("f", 1))

	require.NoError(t, b.Flush(context.Background()))
	events := sink.Events()
	assert.Equal(t, []string{analytics.EventFunnelAbandoned, analytics.EventFunnelCompleted}, eventNames(events))
	assert.Equal(t, []string{"a"}, events[0].Funnel.Steps)
	assert.Equal(t, []string{"b"}, events[1].Funnel.Steps)

	s := tr.Summary()
	assert.Equal(t, 2, s.Started)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Abandoned)
}

func TestTracker_AbandonFunnel(t *testing.T) {
	tr, b, sink, _ := newTracker(t)

	tr.StartFunnel("f")
	require.NoError(t, tr.AbandonFunnel("f"))
	assert.ErrorIs(t, tr.AbandonFunnel("f"), analytics.ErrFunnelNotStarted)

	require.NoError(t, b.Flush(context.Background()))
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.EventFunnelAbandoned, events[0].Name)
	assert.Equal(t, []string{}, events[0].Funnel.Steps)
	_, hasValue := events[0].Properties["value"]
	assert.False(t, hasValue)
}

func TestTracker_Summary(t *testing.T) {
	tr, _, _, clock := newTracker(t)

	tr.StartFunnel("checkout")
	clock.Advance(2 * time.Second)
	require.NoError(t, tr.CompleteFunnel("checkout", 10))

	tr.StartFunnel("checkout")
	clock.Advance(4 * time.Second)
	require.NoError(t, tr.CompleteFunnel("checkout", 20))

	tr.StartFunnel("signup")
	require.NoError(t, tr.AbandonFunnel("signup"))

	tr.StartFunnel("survey") // still open

	s := tr.Summary()
	assert.Equal(t, 4, s.Started)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Abandoned)
	assert.InDelta(t, 0.5, s.ConversionRate, 1e-9)
	assert.Equal(t, 3*time.Second, s.AverageDuration)
	assert.InDelta(t, 15.0, s.AverageValue, 1e-9)

	require.Len(t, s.ByFunnel, 3)
	assert.Equal(t, "checkout", s.ByFunnel[0].Name)
	assert.InDelta(t, 1.0, s.ByFunnel[0].ConversionRate, 1e-9)
	assert.Equal(t, "signup", s.ByFunnel[1].Name)
	assert.Equal(t, 1, s.ByFunnel[1].Abandoned)
	assert.Zero(t, s.ByFunnel[1].ConversionRate)
	assert.Zero(t, s.ByFunnel[1].AverageDuration)
	assert.Equal(t, "survey", s.ByFunnel[2].Name)
	assert.Equal(t, 1, s.ByFunnel[2].Started)
}

func TestTracker_CompleteAfterBatcherClosed(t *testing.T) {
	tr, b, _, _ := newTracker(t)

	tr.StartFunnel("f")
	require.NoError(t, b.Close(context.Background()))

	assert.ErrorIs(t, tr.CompleteFunnel("f", 1), analytics.ErrBatcherClosed)
	assert.Equal(t, 1, tr.Summary().Completed, "funnel state still closes")
}
