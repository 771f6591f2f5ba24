package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	ConfigFile string
}

// NewRootCommand creates the root command for the crossplc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crossplc",
		Short: "Cross-controller analysis for PLC control logic",
		Long: `crossplc loads vendor-neutral controller IR documents, links them into
a multi-controller project and derives control-flow graphs, cross-controller
dependencies, conflicts and inferred state machines.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to crossplc.json")

	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewCFGCommand(opts))
	cmd.AddCommand(NewFSMCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewImpactCommand(opts))
	cmd.AddCommand(NewInitCommand())

	return cmd
}
