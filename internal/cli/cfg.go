package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/export"
)

// CFGOptions holds flags for the cfg command.
type CFGOptions struct {
	*RootOptions
	Output string
	Format string
	Flows  bool
}

var cfgFormats = []string{"dot", "graphml", "json"}

// NewCFGCommand creates the cfg command.
func NewCFGCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CFGOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cfg <path>",
		Short: "Export per-routine control-flow graphs",
		Long: `Build control-flow graphs for every routine and export them as DOT,
GraphML or JSON. With --flows the cross-controller data flow graph is
exported instead (DOT only).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCFG(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write graph to file (default: stdout)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "dot", "output format (dot|graphml|json)")
	cmd.Flags().BoolVar(&opts.Flows, "flows", false, "export the cross-controller data flow graph")

	return cmd
}

func runCFG(opts *CFGOptions, path string, cmd *cobra.Command) error {
	if !validFormat(opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, cfgFormats))
	}

	p, _, err := loadProject(opts.RootOptions, path, false)
	if err != nil {
		return err
	}

	tables := export.BuildTables(p, nil)

	if opts.Flows {
		if opts.Format != "dot" {
			return NewExitError(ExitCommandError, "--flows supports only the dot format")
		}
		return writeOutput(cmd.OutOrStdout(), opts.Output, []byte(export.WriteFlowDOT(tables)))
	}

	switch opts.Format {
	case "dot":
		return writeOutput(cmd.OutOrStdout(), opts.Output, []byte(export.WriteDOT(tables)))
	case "graphml":
		return writeOutput(cmd.OutOrStdout(), opts.Output, []byte(export.WriteGraphML(tables)))
	default:
		graph := struct {
			Nodes []export.NodeRow `json:"nodes"`
			Edges []export.EdgeRow `json:"edges"`
		}{Nodes: tables.Nodes, Edges: tables.Edges}
		return writeJSON(cmd.OutOrStdout(), opts.Output, graph)
	}
}

func validFormat(format string) bool {
	for _, f := range cfgFormats {
		if f == format {
			return true
		}
	}
	return false
}
