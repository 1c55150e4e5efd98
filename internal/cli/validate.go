package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prodops/chainsizer/internal/config"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Path   string         `json:"path"`
	Error  string         `json:"error,omitempty"`
	Loaded *config.Config `json:"config,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a policy config file against the embedded schema",
		Long: `Validate a CUE policy configuration file without running any check.

Reports schema violations (missing thresholds, out-of-range values) with
exit code 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(rootOpts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		result := &ValidationResult{Valid: false, Path: configPath, Error: err.Error()}
		if formatter.Format == "json" {
			if encErr := formatter.SuccessJSON(result); encErr != nil {
				return WrapExitError(ExitCommandError, "failed to write result", encErr)
			}
		} else {
			fmt.Fprintf(formatter.Writer, "Invalid: %s\n", err)
		}
		return NewExitError(ExitFailure, "config validation failed")
	}

	result := &ValidationResult{Valid: true, Path: configPath}
	if rootOpts.Verbose {
		result.Loaded = cfg
	}
	if formatter.Format == "json" {
		return formatter.SuccessJSON(result)
	}
	fmt.Fprintf(formatter.Writer, "Valid: %s\n", configPath)
	return nil
}
