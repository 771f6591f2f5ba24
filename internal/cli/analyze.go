package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/export"
	"github.com/iotrustlab/CrossPLC/internal/validator"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Output    string
	Hints     string
	Strict    bool
	DeltaFrom string
	DeltaOut  string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Build the full multi-controller analysis report",
		Long: `Load controller IR documents, link them into a project and emit the
relational report: controllers, tags, CFG nodes and edges, cross-controller
flows and dependencies, conflicts, inferred state machines and diagnostics.

The report is validated against its data contract before it is written;
a contract violation is a bug in the exporter and aborts the run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write report JSON to file (default: stdout)")
	cmd.Flags().StringVar(&opts.Hints, "hints", "", "YAML hints file for state machine inference")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "require an overlay for every controller")
	cmd.Flags().StringVar(&opts.DeltaFrom, "delta-from", "", "previous report JSON to compute delta from")
	cmd.Flags().StringVar(&opts.DeltaOut, "delta-out", "", "write delta JSON to file (requires --delta-from)")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	p, cfg, err := loadProject(opts.RootOptions, path, opts.Strict)
	if err != nil {
		return err
	}

	hints, err := loadHints(cfg, rootDir(path), opts.Hints)
	if err != nil {
		return fmt.Errorf("loading hints: %w", err)
	}

	tables := export.BuildTables(p, buildModels(p, hints))

	rv, err := validator.NewReportValidator()
	if err != nil {
		return fmt.Errorf("loading report contract: %w", err)
	}
	if err := rv.Validate(tables); err != nil {
		return fmt.Errorf("report violates its data contract: %w", err)
	}

	if err := writeJSON(cmd.OutOrStdout(), opts.Output, tables); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if opts.DeltaFrom != "" || opts.DeltaOut != "" {
		if opts.DeltaFrom == "" || opts.DeltaOut == "" {
			return NewExitError(ExitCommandError, "--delta-from and --delta-out must be used together")
		}
		prev, err := readTables(opts.DeltaFrom)
		if err != nil {
			return fmt.Errorf("reading delta-from: %w", err)
		}
		delta := export.ComputeDelta(prev, tables)
		if err := writeJSON(cmd.OutOrStdout(), opts.DeltaOut, delta); err != nil {
			return fmt.Errorf("writing delta: %w", err)
		}
	}

	return nil
}

func readTables(path string) (export.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables export.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return export.Tables{}, err
	}
	return tables, nil
}
