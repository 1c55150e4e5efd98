package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prodops/chainsizer/internal/workflow"
)

// AdviseOptions holds flags for the advise command.
type AdviseOptions struct {
	Keywords []string
}

// NewAdviseCommand creates the advise command.
func NewAdviseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdviseOptions{}

	cmd := &cobra.Command{
		Use:   "advise <workflow-file>",
		Short: "Advise whether a task chain qualifies for step chain conversion",
		Long: `Evaluate the structural and CPU-efficiency criteria for collapsing a
task chain request into a single merged step chain, and print the full
criteria breakdown.

With --keyword, the chain additionally must mention at least one keyword in
its processing string or workflow name.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvise(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Keywords, "keyword", nil, "keyword filter (repeatable)")

	return cmd
}

func runAdvise(rootOpts *RootOptions, opts *AdviseOptions, workflowPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}

	req, err := workflow.Load(workflowPath)
	if err != nil {
		return commandError(formatter, ErrCodeNotFound, "failed to load workflow schema", err)
	}

	engine, closeEngine, err := buildEngine(cfg)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to set up policy engine", err)
	}
	defer closeEngine()

	advice, err := engine.AdviseConversion(req, opts.Keywords)
	if err != nil {
		return commandError(formatter, ErrCodePolicy, "conversion advice failed", err)
	}

	if formatter.Format == "json" {
		return formatter.SuccessJSON(advice)
	}

	if advice.Reason != "" {
		fmt.Fprintf(formatter.Writer, "Not eligible: %s\n", advice.Reason)
		return nil
	}
	if advice.Eligible {
		fmt.Fprintf(formatter.Writer, "Eligible: %s can be converted to a step chain\n", req.Name())
	} else {
		fmt.Fprintf(formatter.Writer, "Not eligible: %s\n", req.Name())
	}
	fmt.Fprintf(formatter.Writer, "  more than one task:   %v\n", advice.MoreThanOneTask)
	fmt.Fprintf(formatter.Writer, "  unique output tiers:  %v\n", advice.AllUniqueTiers)
	fmt.Fprintf(formatter.Writer, "  same arch family:     %v\n", advice.SameArchFamily)
	if advice.SameCores {
		fmt.Fprintf(formatter.Writer, "  same core counts:     true\n")
	} else {
		fmt.Fprintf(formatter.Writer, "  same core counts:     false (cpu efficiency %.1f%%, acceptable: %v)\n",
			advice.CPUEfficiency*100, advice.AcceptableEfficiency)
	}
	fmt.Fprintf(formatter.Writer, "  no event streams:     %v\n", advice.NoEventStreams)
	fmt.Fprintf(formatter.Writer, "  keyword matched:      %v\n", advice.KeywordMatched)
	return nil
}
