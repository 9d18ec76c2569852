package analytics_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
)

var sinkEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEvents() []analytics.Event {
	user := &analytics.Identity{
		UserID: "user-42",
		Traits: analytics.Properties{"plan": analytics.String("pro")},
	}
	return []analytics.Event{
		{
			ID:   "evt-1",
			Seq:  1,
			Name: "deep_link_opened",
			Properties: analytics.Properties{
				"segment": analytics.String("product"),
				"host":    analytics.String("example.com"),
				"outcome": analytics.String("dispatched"),
			},
			Timestamp: sinkEpoch,
		},
		{
			ID:   "evt-2",
			Seq:  2,
			Name: "menu_viewed",
			Properties: analytics.Properties{
				"table": analytics.Int(7),
				"vip":   analytics.Bool(true),
			},
			Timestamp: sinkEpoch.Add(1500 * time.Millisecond),
			Identity:  user,
		},
		{
			ID:   "evt-3",
			Seq:  3,
			Name: analytics.EventFunnelCompleted,
			Properties: analytics.Properties{
				"funnel": analytics.String("checkout"),
				"steps":  analytics.Int(2),
				"value":  analytics.Number(10),
			},
			Timestamp: sinkEpoch.Add(5 * time.Second),
			Identity:  &analytics.Identity{UserID: "user-42"},
			Funnel: &analytics.FunnelRecord{
				Name:     "checkout",
				Steps:    []string{"cart", "payment"},
				Outcome:  analytics.OutcomeCompleted,
				Value:    10,
				Duration: 5 * time.Second,
			},
		},
	}
}

func TestWriterSink_Golden(t *testing.T) {
	var buf bytes.Buffer
	sink := analytics.NewWriterSink(&buf)

	require.NoError(t, sink.Send(context.Background(), sampleEvents()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "writer_sink", buf.Bytes())
}

func TestWriterSink_EncodeFailureWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	sink := analytics.NewWriterSink(&buf)

	events := sampleEvents()
	events[1].Properties["bad"] = analytics.Number(math.NaN())

	err := sink.Send(context.Background(), events)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSink_WriteError(t *testing.T) {
	sink := analytics.NewWriterSink(failingWriter{})
	assert.Error(t, sink.Send(context.Background(), sampleEvents()))
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := analytics.NewMemorySink()

	events := sampleEvents()
	require.NoError(t, sink.Send(ctx, events[:2]))
	require.NoError(t, sink.Send(ctx, events[2:]))

	assert.Len(t, sink.Batches(), 2)
	assert.Equal(t, []string{"deep_link_opened", "menu_viewed", "funnel_completed"}, eventNames(sink.Events()))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, sink.Send(canceled, events), context.Canceled)
	assert.Len(t, sink.Batches(), 2)
}

func TestSQLiteSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sink, err := analytics.NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	in := sampleEvents()
	require.NoError(t, sink.Send(ctx, in))

	out, err := sink.Events(ctx)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Seq, out[i].Seq)
		assert.Equal(t, in[i].Name, out[i].Name)
		assert.Equal(t, in[i].Properties, out[i].Properties)
		assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp))
		assert.Equal(t, in[i].Identity, out[i].Identity)
		assert.Equal(t, in[i].Funnel, out[i].Funnel)
	}
}

func TestSQLiteSink_ResendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sink, err := analytics.NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	events := sampleEvents()
	require.NoError(t, sink.Send(ctx, events))
	require.NoError(t, sink.Send(ctx, events))

	n, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteSink_WithBatcher(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	sink, err := analytics.NewSQLiteSink(path)
	require.NoError(t, err)
	defer sink.Close()

	b := analytics.NewBatcher(sink, analytics.WithBatchSize(2), analytics.WithFlushInterval(time.Hour))
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, b.Track(name, analytics.Properties{"k": analytics.String(name)}))
	}
	require.NoError(t, b.Close(ctx))

	n, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteSink_InvalidPath(t *testing.T) {
	_, err := analytics.NewSQLiteSink("/nonexistent/dir/events.db")
	assert.Error(t, err)
}
