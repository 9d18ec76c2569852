/*
Package clipkit coordinates the lifecycle of a lightweight, URL-activated
application session.

# Overview

A session is created by an activation URL, does one focused job, and may
hand its state off to the full application. clipkit ties together the
pieces such a session needs:

  - route: parses activation URLs, validates them, and dispatches the
    handler registered for the first path segment
  - analytics: batches events, applies the privacy policy, and tracks
    conversion funnels
  - vault: stores session records with retention and optional encryption
  - notify: publishes handler results to subscribers

The Session type owns one lifecycle over those components.

# Lifecycle

	Uninitialized -> Initializing -> Ready -> Dispatching -> Ready
	                                  Ready -> Transitioning -> Terminated

Initialize loads settings through a config.Loader and hands them to every
component that implements Initializer. A failure leaves the session in
Initializing, and Initialize may be called again.

ProcessDeepLink always returns the session to Ready, whether the URL was
dispatched, rejected by the validator, malformed, or unrouted. Handlers run
on their own goroutines; the returned route.Dispatch reports their outcome.

PrepareForHandoff waits for running handlers, persists a Handoff snapshot
under KeySessionHandoff, flushes analytics and terminates. Every later call
returns ErrSessionTerminated.

# Basic Usage

	router := route.New()
	router.RegisterHandler("product", showProduct)

	batcher := analytics.NewBatcher(analytics.NewWriterSink(os.Stdout))
	defer batcher.Close(ctx)

	v := vault.New(storage.NewMemoryStore())

	s := clipkit.New(router, batcher, v, clipkit.WithLoader(config.File("clip.yaml")))
	if err := s.Initialize(ctx); err != nil {
	    log.Fatal(err)
	}

	d, err := s.ProcessDeepLink(ctx, "https://shop.example/product?id=123")
	switch {
	case errors.Is(err, route.ErrNoRouteMatched):
	    // show a fallback screen
	case err != nil:
	    log.Print(err)
	default:
	    err = d.Wait(ctx)
	}

# Persistence

After each dispatch the session context (last URL, segment, parameters and
settings) is written under KeySessionContext. With securityLevel strict
both records are encrypted, which requires a vault built with
vault.WithEncryptor.

# Observability

Sessions log through slog with a session_id attribute and open spans
through an observability.SpanManager. Every dispatch is tracked as a
deep_link_opened event carrying the segment, host and outcome.
*/
package clipkit
