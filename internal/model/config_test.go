package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TASKFEED_USER", "")
	t.Setenv("TASKFEED_DB", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDueSoonInterval, cfg.Feed.DueSoonInterval)
	assert.Equal(t, DefaultActivityInterval, cfg.Feed.ActivityInterval)
	assert.Equal(t, "Local", cfg.Feed.Timezone)
	assert.Equal(t, DefaultDatabasePath(), cfg.Database.Path)
	assert.Equal(t, "Sent", cfg.Reminder.IMAP.Mailbox)
	assert.Equal(t, "auto", cfg.Display.Theme)
	assert.Empty(t, cfg.Identity.User)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	t.Setenv("TASKFEED_USER", "")
	t.Setenv("TASKFEED_DB", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/feed.db
feed:
  due_soon_interval: 10m
  activity_interval: 15s
  timezone: UTC
identity:
  user: alice
reminder:
  smtp:
    host: smtp.example.com
    port: "465"
    username: alice
    tls: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/feed.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Minute, cfg.Feed.DueSoonInterval)
	assert.Equal(t, 15*time.Second, cfg.Feed.ActivityInterval)
	assert.Equal(t, "alice", cfg.Identity.User)
	assert.True(t, cfg.Reminder.SMTP.Enabled())
	assert.Equal(t, "465", cfg.Reminder.SMTP.Port)
	assert.True(t, cfg.Reminder.SMTP.TLS)
	assert.False(t, cfg.Reminder.IMAP.Enabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TASKFEED_USER", "bob")
	t.Setenv("TASKFEED_DB", "/var/lib/taskfeed.db")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Identity.User)
	assert.Equal(t, "/var/lib/taskfeed.db", cfg.Database.Path)
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  timezone: Nowhere/Special\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere/Special")
}

func TestLoadConfig_NonPositiveIntervalsFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  due_soon_interval: 0s\n  activity_interval: -5s\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDueSoonInterval, cfg.Feed.DueSoonInterval)
	assert.Equal(t, DefaultActivityInterval, cfg.Feed.ActivityInterval)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("TASKFEED_USER", "")
	t.Setenv("TASKFEED_DB", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Identity.User = "alice"
	cfg.Feed.Timezone = "UTC"
	cfg.Feed.ActivityInterval = time.Minute
	cfg.Reminder.SMTP = MailServerConfig{Host: "smtp.example.com", Port: "587", Username: "alice"}

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity, got.Identity)
	assert.Equal(t, cfg.Feed, got.Feed)
	assert.Equal(t, cfg.Reminder.SMTP, got.Reminder.SMTP)
	assert.Equal(t, cfg.Reminder.IMAP, got.Reminder.IMAP)
}

func TestFeedConfig_Location(t *testing.T) {
	loc, err := FeedConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = FeedConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
