package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/ir"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	Database   string
	Bundle     string
	Invocation string
	Output     string
	Variant    string
}

// ResumeResult reports the flow a resume advanced.
type ResumeResult struct {
	FlowID     string `json:"flowId"`
	Invocation string `json:"invocation"`
	Variant    string `json:"variant"`
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Deliver the completion of a suspended gate invocation",
		Long: `Complete a gated invocation that suspended during an earlier run,
then evaluate syncs until the flow settles again. This is the
out-of-band path a gated concept uses after its external event (an
approval, a job finishing) has happened.

Examples:
  weft resume --db ./weft.db --bundle ./app.yaml \
    --invocation sha256:2c26... \
    --output '{"approved":true}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "path to bundle yaml (required)")
	_ = cmd.MarkFlagRequired("bundle")
	cmd.Flags().StringVar(&opts.Invocation, "invocation", "", "suspended invocation id (required)")
	_ = cmd.MarkFlagRequired("invocation")
	cmd.Flags().StringVar(&opts.Output, "output", "", "completion output object (JSON)")
	cmd.Flags().StringVar(&opts.Variant, "variant", ir.VariantOK, "completion variant")

	return cmd
}

func runResume(opts *ResumeOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	output, err := parseObjectFlag(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --output", err)
	}

	rt, err := openRuntime(opts.Database, opts.Bundle)
	if err != nil {
		return err
	}
	defer rt.Close()

	inv, err := rt.log.Record(ctx, opts.Invocation)
	if err != nil {
		return WrapExitError(ExitCommandError, "read invocation", err)
	}

	eng, err := newEngine(ctx, rt)
	if err != nil {
		return err
	}

	if err := eng.Resolve(ctx, opts.Invocation, opts.Variant, output); err != nil {
		return WrapExitError(ExitFailure, "resolve invocation", err)
	}
	if err := eng.RunUntilIdle(ctx); err != nil {
		return WrapExitError(ExitCommandError, "run flow", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, ResumeResult{
			FlowID:     inv.FlowID,
			Invocation: opts.Invocation,
			Variant:    opts.Variant,
		})
	}
	fmt.Fprintf(w, "resumed flow %s (%s/%s → %s)\n", inv.FlowID, inv.Concept, inv.Action, opts.Variant)
	return nil
}
