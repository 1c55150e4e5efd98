package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prodops/chainsizer/internal/policy"
	"github.com/prodops/chainsizer/internal/splitting"
	"github.com/prodops/chainsizer/internal/workflow"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Apply bool // write capped splittings back to the splittings file
}

// CheckReport is the output payload of the check command.
type CheckReport struct {
	ReportID string             `json:"report_id"`
	Workflow string             `json:"workflow"`
	Hold     bool               `json:"hold"`
	Modified []*splitting.Entry `json:"modified,omitempty"`
	Findings []policy.Finding   `json:"findings,omitempty"`
	Blowup   float64            `json:"blowup_factor"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check <workflow-file> <splittings-file>",
		Short: "Validate a chain's splitting sizes against the time and size budgets",
		Long: `Validate the per-task splitting parameters of a workflow request against
the wall-clock and output-size budgets.

Oversized events_per_job values are capped; an oversized events_per_lumi on
the chain's first task is reduced when the chain generates its own events.
Chains that cannot be auto-fixed are reported as held (exit code 1).

Workflow and splittings files may be JSON or YAML.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "write modified splittings back to the splittings file")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *CheckOptions, workflowPath, splittingsPath string, cmd *cobra.Command) error {
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

	entries, err := splitting.Load(splittingsPath)
	if err != nil {
		return commandError(formatter, ErrCodeNotFound, "failed to load splittings", err)
	}

	checked := splitting.ScrubParams(splitting.FilterTaskTypes(entries))
	formatter.VerboseLog("Checking %d of %d splitting entries for %s", len(checked), len(entries), req.Name())

	engine, closeEngine, err := buildEngine(cfg)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to set up policy engine", err)
	}
	defer closeEngine()

	var decision *policy.Decision
	if req.RequestType() == workflow.TypeStepChain {
		decision, err = engine.CheckStepChainSplitting(req, checked)
	} else {
		decision, err = engine.CheckSplitting(cmd.Context(), req, checked)
	}
	if err != nil {
		return commandError(formatter, ErrCodePolicy, "splitting check failed", err)
	}

	if opts.Apply && len(decision.Modified) > 0 {
		if err := writeSplittings(splittingsPath, entries); err != nil {
			return commandError(formatter, ErrCodeGeneric, "failed to write splittings", err)
		}
		formatter.VerboseLog("Wrote %d modified entries to %s", len(decision.Modified), splittingsPath)
	}

	report := &CheckReport{
		ReportID: decision.ReportID,
		Workflow: req.Name(),
		Hold:     decision.Hold,
		Modified: decision.Modified,
		Findings: decision.Findings,
		Blowup:   splitting.BlowupFactor(checked),
	}

	if err := outputCheckReport(formatter, report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if decision.Hold {
		return NewExitError(ExitFailure, "chain held for operator intervention")
	}
	return nil
}

func outputCheckReport(f *OutputFormatter, report *CheckReport) error {
	if f.Format == "json" {
		return f.SuccessJSON(report)
	}

	fmt.Fprintf(f.Writer, "Workflow: %s\n", report.Workflow)
	if report.Hold {
		fmt.Fprintln(f.Writer, "Hold: yes (operator intervention required)")
	} else {
		fmt.Fprintln(f.Writer, "Hold: no")
	}
	if len(report.Modified) == 0 {
		fmt.Fprintln(f.Writer, "Modified: none")
	} else {
		fmt.Fprintf(f.Writer, "Modified: %d\n", len(report.Modified))
		for _, e := range report.Modified {
			fmt.Fprintf(f.Writer, "  - %s %v\n", e.ShortTaskName(), e.SplitParams)
		}
	}
	for _, finding := range report.Findings {
		if finding.Task != "" {
			fmt.Fprintf(f.Writer, "[%s] %s: %s\n", finding.Code, finding.Task, finding.Message)
		} else {
			fmt.Fprintf(f.Writer, "[%s] %s\n", finding.Code, finding.Message)
		}
	}
	if report.Blowup > 0 {
		fmt.Fprintf(f.Writer, "Blowup factor: %.2f\n", report.Blowup)
	}
	return nil
}

// writeSplittings persists the full entry list, including in-place caps, in
// the request manager's JSON shape.
func writeSplittings(path string, entries []*splitting.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal splittings: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
