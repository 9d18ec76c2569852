package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Routes []string
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <url>",
		Short: "Parse an activation URL into its route match",
		Long: `Parse an activation URL and print the route match.

Patterns given with --route are used to bind path captures; the URL is
never dispatched and no validator runs.

Example:
  clipkit parse 'https://shop.example/product/42?size=m' --route /product/:id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Routes, "route", nil, "route pattern such as /product/:id (repeatable)")

	return cmd
}

func runParse(opts *ParseOptions, raw string, cmd *cobra.Command) error {
	router, err := buildRouter(opts.RootOptions, cmd, opts.Routes, nil)
	if err != nil {
		return err
	}

	m, err := router.ParseURL(raw)
	if err != nil {
		return WrapExitError(ExitFailure, "parse failed", err)
	}

	return opts.formatter(cmd).Print(m, func(w io.Writer) {
		fmt.Fprintf(w, "scheme:  %s\n", m.Scheme)
		fmt.Fprintf(w, "host:    %s\n", m.Host)
		fmt.Fprintf(w, "segment: %s\n", m.Segment)
		if m.Pattern != "" {
			fmt.Fprintf(w, "pattern: %s (matched=%t)\n", m.Pattern, m.PatternMatched)
		}
		printParams(w, m.Params)
	})
}

func printParams(w io.Writer, params map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(params)) {
		fmt.Fprintf(w, "  %s=%s\n", k, params[k])
	}
}

// buildRouter registers each pattern with a handler that does nothing.
func buildRouter(opts *RootOptions, cmd *cobra.Command, patterns []string, hosts []string) (*route.Router, error) {
	ropts := []route.Option{route.WithLogger(opts.logger(cmd))}
	if len(hosts) > 0 {
		ropts = append(ropts, route.WithValidator(route.RequireHost(hosts...)))
	}
	router := route.New(ropts...)

	for _, p := range patterns {
		if err := router.Register(p, acknowledge); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --route", err)
		}
	}
	return router, nil
}
