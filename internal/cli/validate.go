package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/index"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Bundle string
}

// ValidateResult is the machine-readable validation outcome.
type ValidateResult struct {
	Concepts int      `json:"concepts"`
	Syncs    int      `json:"syncs"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a bundle of concepts and syncs",
		Long: `Validate a bundle file: schema shape, value restrictions, and
sync references against the declared concept actions.

Unresolved references are warnings, not errors. Registration still
succeeds so the rest of the suite remains usable.

Examples:
  weft validate --bundle ./app.yaml
  weft validate --bundle ./app.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "path to bundle yaml (required)")
	_ = cmd.MarkFlagRequired("bundle")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	bundle, err := LoadBundle(opts.Bundle)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid bundle", err)
	}

	idx := index.New(bundle.Concepts)
	var warnings []index.Warning
	for _, s := range bundle.Syncs {
		warnings = append(warnings, idx.Register(s)...)
	}

	result := ValidateResult{
		Concepts: len(bundle.Concepts),
		Syncs:    len(bundle.Syncs),
	}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "Bundle OK: %d concepts, %d syncs\n", result.Concepts, result.Syncs)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
