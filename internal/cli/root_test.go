package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/model"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "taskfeed", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "watch", "feed", "remind", "credential"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
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

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestRemindCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	remindCmd, _, err := cmd.Find([]string{"remind"})
	require.NoError(t, err)

	yesFlag := remindCmd.Flags().Lookup("yes")
	require.NotNil(t, yesFlag)
	assert.Equal(t, "y", yesFlag.Shorthand)
	require.NotNil(t, remindCmd.Flags().Lookup("dry-run"))
}

func TestInvalidFormat(t *testing.T) {
	cfgPath := writeConfig(t, "alice")

	_, err := execute(t, "--config", cfgPath, "--format", "yaml", "feed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "boom", assert.AnError)))

	err := WrapExitError(ExitFailure, "sending", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "sending: "+assert.AnError.Error(), err.Error())
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig saves a config for user with a database under t.TempDir and
// returns its path.
func writeConfig(t *testing.T, user string) string {
	t.Helper()
	t.Setenv("TASKFEED_USER", "")
	t.Setenv("TASKFEED_DB", "")

	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "data", "taskfeed.db")
	cfg.Feed.Timezone = "UTC"
	cfg.Identity.User = user
	cfg.Reminder.From = "TaskFeed <feed@example.com>"
	cfg.Reminder.FallbackDomain = "example.com"

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(path, cfg))
	return path
}
