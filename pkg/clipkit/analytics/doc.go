// Package analytics buffers clip events and tracks conversion funnels.
//
// A Batcher collects events in memory and delivers them to a Sink in
// batches, either when the batch size is reached or when the flush interval
// passes. Delivery is at-least-once from the buffer's point of view: events
// are removed only after the sink accepts them.
//
//	b := analytics.NewBatcher(analytics.NewWriterSink(os.Stdout),
//		analytics.WithBatchSize(20),
//		analytics.WithFlushInterval(30*time.Second),
//	)
//	defer b.Close(ctx)
//	b.Track("menu_viewed", analytics.Properties{"table": analytics.Int(7)})
//
// A Tracker records funnels on top of a Batcher:
//
//	t := analytics.NewTracker(b)
//	t.StartFunnel("checkout")
//	t.TrackFunnelStep("cart")
//	t.TrackFunnelStep("payment")
//	t.CompleteFunnel("checkout", 10.0)
//
// In strict-privacy mode the Policy keeps only allow-listed property keys
// and always removes identifier keys such as device_id and email.
package analytics
