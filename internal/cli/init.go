package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iotrustlab/CrossPLC/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a crossplc.json configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	const configPath = "crossplc.json"

	if _, err := os.Stat(configPath); err == nil && !force {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", configPath))
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Controller IR input globs")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Overlay documents and strict mode")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Audit rule severities")
	return nil
}
