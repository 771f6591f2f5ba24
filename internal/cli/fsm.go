package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/fsm"
)

// FSMOptions holds flags for the fsm command.
type FSMOptions struct {
	*RootOptions
	Output     string
	Hints      string
	Controller string
}

// NewFSMCommand creates the fsm command.
func NewFSMCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FSMOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fsm <path>",
		Short: "Infer state machines from controller logic",
		Long: `Infer a state machine model for each controller from its branching
structure: the state variable, states, guarded transitions and their
actions. Advisory YAML hints can pin the state variable and declare the
expected states and transitions; the model reports hint coverage but is
never altered by it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFSM(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write models JSON to file (default: stdout)")
	cmd.Flags().StringVar(&opts.Hints, "hints", "", "YAML hints file")
	cmd.Flags().StringVar(&opts.Controller, "controller", "", "limit inference to one controller")

	return cmd
}

func runFSM(opts *FSMOptions, path string, cmd *cobra.Command) error {
	p, cfg, err := loadProject(opts.RootOptions, path, false)
	if err != nil {
		return err
	}

	hints, err := loadHints(cfg, rootDir(path), opts.Hints)
	if err != nil {
		return fmt.Errorf("loading hints: %w", err)
	}

	models := buildModels(p, hints)

	if opts.Controller != "" {
		model, ok := models[opts.Controller]
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown controller %q", opts.Controller))
		}
		models = map[string]fsm.Model{opts.Controller: model}
	}

	return writeJSON(cmd.OutOrStdout(), opts.Output, models)
}
