package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/project"
)

// ImpactOptions holds flags for the impact command.
type ImpactOptions struct {
	*RootOptions
	Output string
	Format string
}

// NewImpactCommand creates the impact command.
func NewImpactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImpactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "impact <path> <controller>",
		Short: "Show controllers transitively affected by one controller",
		Long: `Walk the cross-controller dependency graph breadth-first from the named
controller and report, level by level, which controllers are transitively
affected by changes to its outputs.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write report to file (default: stdout)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format (text|json)")

	return cmd
}

func runImpact(opts *ImpactOptions, path, root string, cmd *cobra.Command) error {
	if opts.Format != "text" && opts.Format != "json" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be text or json", opts.Format))
	}

	p, _, err := loadProject(opts.RootOptions, path, false)
	if err != nil {
		return err
	}

	if _, ok := p.Controller(root); !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown controller %q", root))
	}

	report := p.Impact(root)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), opts.Output, report)
	}
	return writeOutput(cmd.OutOrStdout(), opts.Output, []byte(project.FormatImpactReport(report)))
}
