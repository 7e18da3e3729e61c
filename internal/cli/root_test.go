package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "hangup", cmd.Use)
	assert.Contains(t, cmd.Long, "participant identity")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"join", "leave", "state", "send", "notice", "dismiss",
		"participants", "sessions", "purge", "config", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestStateSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"get", "set", "clear", "delta"} {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{"state", name})
			require.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	// Empty defaults leave the config file in charge.
	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	sessionFlag := cmd.PersistentFlags().Lookup("session")
	require.NotNil(t, sessionFlag)
	assert.Equal(t, "s", sessionFlag.Shorthand)
	assert.Equal(t, "", sessionFlag.DefValue)
}

func TestJoinCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	joinCmd, _, err := cmd.Find([]string{"join"})
	require.NoError(t, err)

	intervalFlag := joinCmd.Flags().Lookup("interval")
	require.NotNil(t, intervalFlag)
	assert.Equal(t, "0s", intervalFlag.DefValue)

	detachFlag := joinCmd.Flags().Lookup("detach")
	require.NotNil(t, detachFlag)
	assert.Equal(t, "false", detachFlag.DefValue)
}

func TestNoticeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	noticeCmd, _, err := cmd.Find([]string{"notice"})
	require.NoError(t, err)

	permanentFlag := noticeCmd.Flags().Lookup("permanent")
	require.NotNil(t, permanentFlag)
	assert.Equal(t, "false", permanentFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "sessions"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
