package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/clipkit/pkg/clipkit"
	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
)

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	*RootOptions
	Config     string
	DB         string
	Events     string
	Passphrase string
	Routes     []string
	Hosts      []string
	Handoff    bool
}

// OpenResult is the outcome of one URL.
type OpenResult struct {
	URL     string            `json:"url"`
	Segment string            `json:"segment,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Outcome string            `json:"outcome"`
	Error   string            `json:"error,omitempty"`
}

// OpenReport is printed by the open command.
type OpenReport struct {
	SessionID string       `json:"session_id"`
	State     string       `json:"state"`
	Results   []OpenResult `json:"results"`
	Events    int          `json:"events_flushed"`
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "open <url>...",
		Short: "Run a session over one or more activation URLs",
		Long: `Run a session lifecycle over one or more activation URLs.

Each --route pattern is registered with a handler that acknowledges the
match. URLs are dispatched in order; events go to --events (SQLite) and the
session context to --db (SQLite). Both default to memory.

Example:
  clipkit open 'https://shop.example/product/42' --route /product/:id --db clip.db --handoff`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "settings file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "vault database path")
	cmd.Flags().StringVar(&opts.Events, "events", "", "analytics database path")
	cmd.Flags().StringVar(&opts.Passphrase, "passphrase", "", "vault passphrase, required with securityLevel strict")
	cmd.Flags().StringArrayVar(&opts.Routes, "route", nil, "route pattern such as /product/:id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Hosts, "host", nil, "accepted host; subdomains with a leading dot (repeatable)")
	cmd.Flags().BoolVar(&opts.Handoff, "handoff", false, "prepare for handoff after the last URL")

	return cmd
}

// acknowledge is the handler registered for every --route pattern.
func acknowledge(context.Context, route.Match) error {
	return nil
}

// eventCounter is a sink that can report how many events it holds.
type eventCounter interface {
	analytics.Sink
	Count(ctx context.Context) (int, error)
}

type memoryCounter struct {
	*analytics.MemorySink
}

func (m memoryCounter) Count(context.Context) (int, error) {
	return len(m.Events()), nil
}

func openSink(path string) (eventCounter, func() error, error) {
	if path == "" {
		return memoryCounter{analytics.NewMemorySink()}, func() error { return nil }, nil
	}
	sink, err := analytics.NewSQLiteSink(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open events database", err)
	}
	return sink, sink.Close, nil
}

func runOpen(ctx context.Context, opts *OpenOptions, urls []string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger(cmd)

	loader := config.Static(config.Defaults())
	if opts.Config != "" {
		loader = config.File(opts.Config)
	}

	router, err := buildRouter(opts.RootOptions, cmd, opts.Routes, opts.Hosts)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(opts.Events)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeSink()) }()

	batcher := analytics.NewBatcher(sink, analytics.WithLogger(logger))
	defer func() { err = errors.Join(err, batcher.Close(ctx)) }()

	store, err := openStore(opts.DB)
	if err != nil {
		return err
	}
	v, err := openVault(ctx, store, opts.Passphrase, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() { err = errors.Join(err, v.Close()) }()

	s := clipkit.New(router, batcher, v,
		clipkit.WithLoader(loader),
		clipkit.WithLogger(logger),
	)
	if err := s.Initialize(ctx); err != nil {
		return WrapExitError(ExitCommandError, "initialize session", err)
	}

	report := OpenReport{SessionID: s.ID()}
	failed := false
	for _, raw := range urls {
		res := dispatchOne(ctx, s, raw)
		if res.Error != "" {
			failed = true
		}
		report.Results = append(report.Results, res)
	}

	if opts.Handoff {
		if err := s.PrepareForHandoff(ctx); err != nil {
			return WrapExitError(ExitCommandError, "handoff", err)
		}
	} else if err := batcher.Flush(ctx); err != nil {
		return WrapExitError(ExitCommandError, "flush events", err)
	}

	report.State = s.State().String()
	if report.Events, err = sink.Count(ctx); err != nil {
		return WrapExitError(ExitCommandError, "count events", err)
	}

	if err := opts.formatter(cmd).Print(report, func(w io.Writer) { printReport(w, report) }); err != nil {
		return err
	}
	if failed {
		return NewExitError(ExitFailure, "one or more URLs were not dispatched")
	}
	return nil
}

func dispatchOne(ctx context.Context, s *clipkit.Session, raw string) OpenResult {
	d, err := s.ProcessDeepLink(ctx, raw)
	if d != nil {
		if werr := d.Wait(ctx); werr != nil {
			err = errors.Join(err, werr)
		}
	}

	sc := s.Context()
	res := OpenResult{
		URL:     raw,
		Segment: sc.Segment,
		Params:  sc.Params,
		Outcome: sc.Outcome,
	}
	if err != nil {
		res.Error = err.Error()
		if res.Outcome == observability.OutcomeDispatched {
			res.Outcome = observability.OutcomeHandlerError
		}
	}
	return res
}

func printReport(w io.Writer, r OpenReport) {
	fmt.Fprintf(w, "session %s (%s)\n", r.SessionID, r.State)
	for _, res := range r.Results {
		fmt.Fprintf(w, "%-10s %s\n", res.Outcome, res.URL)
		if res.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", res.Error)
		}
		printParams(w, res.Params)
	}
	fmt.Fprintf(w, "events flushed: %d\n", r.Events)
}
