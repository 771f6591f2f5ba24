package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "crossplc", cmd.Use)
	assert.Contains(t, cmd.Long, "multi-controller")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"analyze", "cfg", "fsm", "audit", "impact", "init"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestAnalyzeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	analyzeCmd, _, err := cmd.Find([]string{"analyze"})
	require.NoError(t, err)

	outputFlag := analyzeCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	require.NotNil(t, analyzeCmd.Flags().Lookup("delta-from"))
	require.NotNil(t, analyzeCmd.Flags().Lookup("delta-out"))
	require.NotNil(t, analyzeCmd.Flags().Lookup("strict"))
	require.NotNil(t, analyzeCmd.Flags().Lookup("hints"))
}

func TestCFGCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	cfgCmd, _, err := cmd.Find([]string{"cfg"})
	require.NoError(t, err)

	formatFlag := cfgCmd.Flags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "dot", formatFlag.DefValue)
}

func TestExitCodes(t *testing.T) {
	err := NewExitError(ExitFailure, "findings")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Equal(t, ExitCommandError, GetExitCode(assert.AnError))
}
