package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/export"
	"github.com/iotrustlab/CrossPLC/internal/policy"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Output   string
	Format   string
	RulesDir string
	Hints    string
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit <path>",
		Short: "Evaluate audit rules over the analysis report",
		Long: `Build the analysis report and evaluate the audit rules against it:
type-mismatched shared tags, name collisions, unresolved references,
multi-writer tags, structural gaps and ambiguous state variables.

Rule severities come from the audit section of crossplc.json; rules set
to "off" are skipped. Additional .rego rules are loaded from --rules-dir.
Exits 1 when any error-severity finding fires.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write findings to file (default: stdout)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format (text|json)")
	cmd.Flags().StringVar(&opts.RulesDir, "rules-dir", "", "directory with additional .rego rules")
	cmd.Flags().StringVar(&opts.Hints, "hints", "", "YAML hints file for state machine inference")

	return cmd
}

func runAudit(opts *AuditOptions, path string, cmd *cobra.Command) error {
	if opts.Format != "text" && opts.Format != "json" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be text or json", opts.Format))
	}

	p, cfg, err := loadProject(opts.RootOptions, path, false)
	if err != nil {
		return err
	}

	hints, err := loadHints(cfg, rootDir(path), opts.Hints)
	if err != nil {
		return fmt.Errorf("loading hints: %w", err)
	}

	tables := export.BuildTables(p, buildModels(p, hints))

	rulesDir := opts.RulesDir
	if rulesDir == "" {
		rulesDir = cfg.Audit.RulesDir
	}
	overrides, disabled := cfg.Severities()

	engine, err := policy.New(rulesDir, overrides)
	if err != nil {
		return fmt.Errorf("loading audit rules: %w", err)
	}

	result, err := engine.Evaluate(tables)
	if err != nil {
		return fmt.Errorf("evaluating audit rules: %w", err)
	}
	result = dropDisabled(result, disabled)

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), opts.Output, result); err != nil {
			return err
		}
	} else {
		if err := writeOutput(cmd.OutOrStdout(), opts.Output, []byte(formatFindings(result))); err != nil {
			return err
		}
	}

	if result.Summary.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("audit failed with %d error finding(s)", result.Summary.Errors))
	}
	return nil
}

// dropDisabled removes findings for rules configured "off" and
// recomputes the summary.
func dropDisabled(r *policy.Result, disabled map[string]bool) *policy.Result {
	if len(disabled) == 0 {
		return r
	}

	kept := make([]policy.Finding, 0, len(r.Findings))
	var s policy.Summary
	for _, f := range r.Findings {
		if disabled[f.Rule] {
			continue
		}
		kept = append(kept, f)
		s.TotalFindings++
		switch f.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		case "info":
			s.Info++
		}
	}
	return &policy.Result{Findings: kept, Summary: s}
}

func formatFindings(r *policy.Result) string {
	if len(r.Findings) == 0 {
		return "No findings.\n"
	}

	out := ""
	for _, f := range r.Findings {
		loc := f.Controller
		if f.Tag != "" {
			loc = loc + "/" + f.Tag
		}
		out += fmt.Sprintf("%-7s %-24s %s: %s\n", f.Severity, f.Rule, loc, f.Message)
	}
	out += fmt.Sprintf("\n%d finding(s): %d error, %d warning, %d info\n",
		r.Summary.TotalFindings, r.Summary.Errors, r.Summary.Warnings, r.Summary.Info)
	return out
}
