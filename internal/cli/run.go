package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Bundle   string
	Concept  string
	Action   string
	Input    string
	Output   string
	Variant  string
}

// RunResult reports the flow a run seeded.
type RunResult struct {
	FlowID string `json:"flowId"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Seed a flow with a completed action and run its syncs",
		Long: `Seed a new flow: record that an action completed with the given
input and output, then evaluate syncs until the flow settles. Gated
invocations suspend; resume them later with "weft resume".

Ungated concepts echo their input as the action's output.

Examples:
  weft run --db ./weft.db --bundle ./app.yaml \
    --concept app/User --action register \
    --output '{"user":"u-1","role":"member"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "path to bundle yaml (required)")
	_ = cmd.MarkFlagRequired("bundle")
	cmd.Flags().StringVar(&opts.Concept, "concept", "", "seed concept URI (required)")
	_ = cmd.MarkFlagRequired("concept")
	cmd.Flags().StringVar(&opts.Action, "action", "", "seed action name (required)")
	_ = cmd.MarkFlagRequired("action")
	cmd.Flags().StringVar(&opts.Input, "input", "", "seed input object (JSON)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "seed output object (JSON)")
	cmd.Flags().StringVar(&opts.Variant, "variant", ir.VariantOK, "seed result variant")

	return cmd
}

func runRun(opts *RunOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	input, err := parseObjectFlag(opts.Input)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --input", err)
	}
	output, err := parseObjectFlag(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --output", err)
	}

	rt, err := openRuntime(opts.Database, opts.Bundle)
	if err != nil {
		return err
	}
	defer rt.Close()

	eng, err := newEngine(ctx, rt)
	if err != nil {
		return err
	}

	flowID, err := eng.Seed(ctx, opts.Concept, opts.Action, input, output, opts.Variant)
	if err != nil {
		return WrapExitError(ExitCommandError, "seed flow", err)
	}
	if err := eng.RunUntilIdle(ctx); err != nil {
		return WrapExitError(ExitCommandError, "run flow", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, RunResult{FlowID: flowID})
	}
	fmt.Fprintf(w, "flow %s\n", flowID)
	return nil
}

// newEngine builds an engine over a runtime, resuming the logical clock
// past the highest persisted seq so record ids never collide across
// invocations of the CLI.
func newEngine(ctx context.Context, rt *runtime) (*engine.Engine, error) {
	maxSeq, err := rt.log.MaxSeq(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read max seq", err)
	}
	eng, err := engine.New(rt.log, rt.idx, rt.gates, rt.registry, engine.UUIDv7Generator{},
		engine.WithClock(engine.NewClockAt(maxSeq)))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "init engine", err)
	}
	return eng, nil
}
