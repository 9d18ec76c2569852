package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
)

func quietBatcher(b *testing.B, batchSize int, opts ...analytics.Option) *analytics.Batcher {
	b.Helper()
	opts = append([]analytics.Option{
		analytics.WithBatchSize(batchSize),
		analytics.WithFlushInterval(time.Hour),
		analytics.WithMaxBuffer(batchSize * 4),
		analytics.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	bt := analytics.NewBatcher(analytics.SinkFunc(func(context.Context, []analytics.Event) error {
		return nil
	}), opts...)
	b.Cleanup(func() { _ = bt.Close(context.Background()) })
	return bt
}

var benchProps = analytics.Properties{
	"segment": analytics.String("product"),
	"price":   analytics.Number(29.99),
	"email":   analytics.String("someone@example.com"),
}

// BenchmarkTrack_Verbose buffers events without filtering.
func BenchmarkTrack_Verbose(b *testing.B) {
	bt := quietBatcher(b, 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bt.Track("product_viewed", benchProps)
	}
}

// BenchmarkTrack_StrictPrivacy buffers events through the strict filter.
func BenchmarkTrack_StrictPrivacy(b *testing.B) {
	bt := quietBatcher(b, 20, analytics.WithPolicy(analytics.Policy{
		Mode:        config.AnalyticsStrictPrivacy,
		AllowedKeys: []string{"segment", "price"},
	}))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bt.Track("product_viewed", benchProps)
	}
}

// BenchmarkFunnel runs a complete four-step funnel.
func BenchmarkFunnel(b *testing.B) {
	bt := quietBatcher(b, 50)
	tr := analytics.NewTracker(bt)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.StartFunnel("purchase")
		_ = tr.TrackFunnelStep("view")
		_ = tr.TrackFunnelStep("cart")
		_ = tr.TrackFunnelStep("checkout")
		_ = tr.CompleteFunnel("purchase", 10)
	}
}
