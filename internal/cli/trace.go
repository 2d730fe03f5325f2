package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/match"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Bundle   string
	FlowID   string
	Failed   bool
	Gates    bool
	JSON     bool
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Reconstruct and render a flow's causal tree",
		Long: `Reconstruct a flow from the action log: which syncs fired, which
stayed unfired and why, and where gated branches are still waiting.

The trace is a diagnostic view; the exit code is 0 regardless of the
flow's status. Filters compose: --failed --gates shows only subtrees
that contain both a failure and a gate.

Examples:
  weft trace --db ./weft.db --bundle ./app.yaml --flow 0198c5...
  weft trace --db ./weft.db --bundle ./app.yaml --flow 0198c5... --failed
  weft trace --db ./weft.db --bundle ./app.yaml --flow 0198c5... --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceCmd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "path to bundle yaml (required)")
	_ = cmd.MarkFlagRequired("bundle")
	cmd.Flags().StringVar(&opts.FlowID, "flow", "", "flow id to trace (required)")
	_ = cmd.MarkFlagRequired("flow")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "show only subtrees containing failures")
	cmd.Flags().BoolVar(&opts.Gates, "gates", false, "show only subtrees containing gates")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "render the trace structure as JSON")

	return cmd
}

func runTraceCmd(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	rt, err := openRuntime(opts.Database, opts.Bundle)
	if err != nil {
		return err
	}
	defer rt.Close()

	where, err := match.NewWhereEvaluator()
	if err != nil {
		return WrapExitError(ExitCommandError, "init where evaluator", err)
	}

	builder := &trace.Builder{
		Log:   rt.log,
		Idx:   rt.idx,
		Gates: rt.gates,
		Where: where.Eval,
	}
	tr, err := builder.Build(ctx, opts.FlowID)
	if err != nil {
		return WrapExitError(ExitCommandError, "build trace", err)
	}

	w := cmd.OutOrStdout()
	if tr == nil {
		// An unknown flow is an answer, not a process failure.
		fmt.Fprintf(w, "no trace found for flow: %s\n", opts.FlowID)
		return nil
	}

	out, err := render.Render(tr, render.Options{
		JSON:       opts.JSON || opts.Format == "json",
		FailedOnly: opts.Failed,
		GatesOnly:  opts.Gates,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "render trace", err)
	}
	fmt.Fprint(w, out)
	return nil
}
