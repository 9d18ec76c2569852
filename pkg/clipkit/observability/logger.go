// Package observability provides the logging, metrics and tracing hooks
// shared by the clipkit components.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every log helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"time"
)

// Dispatch outcomes shared by logs, metrics and notifications.
const (
	OutcomeDispatched   = "dispatched"
	OutcomeRejected     = "rejected"
	OutcomeNoRoute      = "no_route"
	OutcomeMalformed    = "malformed"
	OutcomeHandlerError = "handler_error"
)

// EnrichLogger adds session context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "3f2c...", "product")
//	enriched.Info("dispatching") // includes session_id, segment
func EnrichLogger(logger *slog.Logger, sessionID, segment string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{slog.String("session_id", sessionID)}
	if segment != "" {
		attrs = append(attrs, slog.String("segment", segment))
	}
	return logger.With(attrs...)
}

// LogStateChange logs a session state transition.
func LogStateChange(logger *slog.Logger, from, to string) {
	if logger == nil {
		return
	}
	logger.Debug("session state changed",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogDispatch logs a handler being started for an activation URL.
func LogDispatch(logger *slog.Logger, segment string, params int) {
	if logger == nil {
		return
	}
	logger.Info("deep link dispatched",
		slog.String("segment", segment),
		slog.Int("params", params),
	)
}

// LogDispatchRejected logs an activation that did not reach a handler.
func LogDispatchRejected(logger *slog.Logger, rawURL, outcome string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("deep link not dispatched",
		slog.String("url", rawURL),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
}

// LogHandlerComplete logs handler completion.
func LogHandlerComplete(logger *slog.Logger, segment string, durationMs float64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("handler failed",
			slog.String("segment", segment),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("handler completed",
		slog.String("segment", segment),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventTracked logs a buffered event. Used in verbose analytics mode only.
func LogEventTracked(logger *slog.Logger, name string, buffered int) {
	if logger == nil {
		return
	}
	logger.Debug("event tracked",
		slog.String("event", name),
		slog.Int("buffered", buffered),
	)
}

// LogFlush logs a delivered batch.
func LogFlush(logger *slog.Logger, events int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("events flushed",
		slog.Int("events", events),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogFlushError logs a failed delivery (non-fatal, events stay buffered).
func LogFlushError(logger *slog.Logger, events int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("flush failed",
		slog.Int("events", events),
		slog.String("error", err.Error()),
	)
}

// LogEventsDropped logs capacity-based eviction.
func LogEventsDropped(logger *slog.Logger, dropped int, capacity int) {
	if logger == nil {
		return
	}
	logger.Warn("event buffer full, oldest events dropped",
		slog.Int("dropped", dropped),
		slog.Int("capacity", capacity),
	)
}

// LogFunnelWarning logs funnel misuse from handler code (non-fatal).
func LogFunnelWarning(logger *slog.Logger, op, funnel string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("funnel state warning",
		slog.String("operation", op),
		slog.String("funnel", funnel),
		slog.String("error", err.Error()),
	)
}

// LogStoreError logs a vault failure that is also returned to the caller.
func LogStoreError(logger *slog.Logger, op, key string, err error) {
	if logger == nil {
		return
	}
	logger.Error("store operation failed",
		slog.String("operation", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogEviction logs expired entries removed by a sweep.
func LogEviction(logger *slog.Logger, removed int) {
	if logger == nil || removed == 0 {
		return
	}
	logger.Debug("expired entries evicted",
		slog.Int("removed", removed),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
