package analytics

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
)

// Funnel outcomes, as recorded in metrics and FunnelRecord.Outcome.
const (
	OutcomeCompleted = "completed"
	OutcomeAbandoned = "abandoned"
	OutcomeStarted   = "started"
)

type openFunnel struct {
	name    string
	steps   []string
	started time.Time
}

type funnelCounts struct {
	started       int
	completed     int
	abandoned     int
	totalDuration time.Duration
	totalValue    float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger for funnel warnings. Defaults to slog.Default().
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithTrackerMetrics sets the metrics recorder. Defaults to no-op.
func WithTrackerMetrics(m observability.MetricsRecorder) TrackerOption {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// Tracker records conversion funnels and emits their terminal events
// through a Batcher.
//
// One funnel per name is open at a time. Steps go to the most recently
// started open funnel, in call order; repeated step names are kept.
// Misuse (a step with nothing open, completing a funnel that isn't open)
// is logged and returned as a *FunnelWarning without changing state.
type Tracker struct {
	batcher *Batcher
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu     sync.Mutex
	open   map[string]*openFunnel
	order  []string // open funnel names, most recently started last
	counts map[string]*funnelCounts
}

// NewTracker creates a Tracker emitting through b.
func NewTracker(b *Batcher, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		batcher: b,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		open:    make(map[string]*openFunnel),
		counts:  make(map[string]*funnelCounts),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartFunnel opens a funnel with no steps. Starting a funnel that is
// already open abandons the open one and starts over.
func (t *Tracker) StartFunnel(name string) {
	now := t.batcher.now()

	t.mu.Lock()
	prev, wasOpen := t.open[name]
	if wasOpen {
		t.closeLocked(prev, OutcomeAbandoned, 0, now)
	}
	t.open[name] = &openFunnel{name: name, started: now}
	t.order = append(t.order, name)
	t.countsLocked(name).started++
	t.mu.Unlock()

	if wasOpen {
		t.emitTerminal(prev, OutcomeAbandoned, 0, now)
	}
	t.metrics.RecordFunnel(context.Background(), name, OutcomeStarted)
}

// TrackFunnelStep appends step to the most recently started open funnel.
// With no funnel open it logs a warning and does nothing.
func (t *Tracker) TrackFunnelStep(step string) error {
	t.mu.Lock()
	if len(t.order) == 0 {
		t.mu.Unlock()
		return t.warn("track step", "", ErrNoOpenFunnel)
	}
	f := t.open[t.order[len(t.order)-1]]
	f.steps = append(f.steps, step)
	t.mu.Unlock()
	return nil
}

// CompleteFunnel closes the named funnel and emits one funnel_completed
// event carrying its steps and value. Completing a funnel that isn't open
// logs a warning and does nothing.
func (t *Tracker) CompleteFunnel(name string, value float64) error {
	return t.finish(name, OutcomeCompleted, value, "complete")
}

// AbandonFunnel closes the named funnel without converting and emits a
// funnel_abandoned event.
func (t *Tracker) AbandonFunnel(name string) error {
	return t.finish(name, OutcomeAbandoned, 0, "abandon")
}

func (t *Tracker) finish(name, outcome string, value float64, op string) error {
	now := t.batcher.now()

	t.mu.Lock()
	f, ok := t.open[name]
	if !ok {
		t.mu.Unlock()
		return t.warn(op, name, ErrFunnelNotStarted)
	}
	t.closeLocked(f, outcome, value, now)
	t.mu.Unlock()

	return t.emitTerminal(f, outcome, value, now)
}

// closeLocked removes f from the open set and updates its counters.
func (t *Tracker) closeLocked(f *openFunnel, outcome string, value float64, now time.Time) {
	delete(t.open, f.name)
	if i := slices.Index(t.order, f.name); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}

	c := t.countsLocked(f.name)
	switch outcome {
	case OutcomeCompleted:
		c.completed++
		c.totalDuration += now.Sub(f.started)
		c.totalValue += value
	case OutcomeAbandoned:
		c.abandoned++
	}
}

func (t *Tracker) emitTerminal(f *openFunnel, outcome string, value float64, now time.Time) error {
	t.metrics.RecordFunnel(context.Background(), f.name, outcome)

	rec := &FunnelRecord{
		Name:     f.name,
		Steps:    slices.Clone(f.steps),
		Outcome:  outcome,
		Value:    value,
		Duration: now.Sub(f.started),
	}
	if rec.Steps == nil {
		rec.Steps = []string{}
	}

	name := EventFunnelAbandoned
	props := Properties{
		"funnel": String(f.name),
		"steps":  Int(int64(len(rec.Steps))),
	}
	if outcome == OutcomeCompleted {
		name = EventFunnelCompleted
		props["value"] = Number(value)
	}

	if err := t.batcher.emit(name, props, rec); err != nil {
		t.logger.Warn("funnel event not tracked",
			slog.String("funnel", f.name),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (t *Tracker) warn(op, funnel string, err error) error {
	w := &FunnelWarning{Op: op, Funnel: funnel, Err: err}
	observability.LogFunnelWarning(t.logger, op, funnel, err)
	return w
}

func (t *Tracker) countsLocked(name string) *funnelCounts {
	c, ok := t.counts[name]
	if !ok {
		c = &funnelCounts{}
		t.counts[name] = c
	}
	return c
}

// OpenFunnels lists open funnel names, oldest start first.
func (t *Tracker) OpenFunnels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}

// Steps returns the steps recorded so far for an open funnel.
func (t *Tracker) Steps(name string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.open[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(f.steps), true
}

// FunnelSummary aggregates one funnel name, or all of them.
//
// Conversion rate and averages come from completed funnels only;
// abandonments are counted separately. Funnels still open count as
// started but neither completed nor abandoned.
type FunnelSummary struct {
	Name            string
	Started         int
	Completed       int
	Abandoned       int
	ConversionRate  float64
	AverageDuration time.Duration
	AverageValue    float64
}

// Summary is the funnel report across every name seen.
type Summary struct {
	FunnelSummary
	ByFunnel []FunnelSummary
}

// Summary reports conversion metrics. ByFunnel is ordered by name.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total funnelCounts
	s := Summary{ByFunnel: make([]FunnelSummary, 0, len(t.counts))}
	for name, c := range t.counts {
		s.ByFunnel = append(s.ByFunnel, summarize(name, *c))
		total.started += c.started
		total.completed += c.completed
		total.abandoned += c.abandoned
		total.totalDuration += c.totalDuration
		total.totalValue += c.totalValue
	}
	sort.Slice(s.ByFunnel, func(i, j int) bool {
		return s.ByFunnel[i].Name < s.ByFunnel[j].Name
	})
	s.FunnelSummary = summarize("", total)
	return s
}

func summarize(name string, c funnelCounts) FunnelSummary {
	fs := FunnelSummary{
		Name:      name,
		Started:   c.started,
		Completed: c.completed,
		Abandoned: c.abandoned,
	}
	if c.started > 0 {
		fs.ConversionRate = float64(c.completed) / float64(c.started)
	}
	if c.completed > 0 {
		fs.AverageDuration = c.totalDuration / time.Duration(c.completed)
		fs.AverageValue = c.totalValue / float64(c.completed)
	}
	return fs
}
