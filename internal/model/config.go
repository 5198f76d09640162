package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// FeedConfig holds the refresh cadence of the feed engine.
type FeedConfig struct {
	// DueSoonInterval is how often the due-soon list is recomputed.
	DueSoonInterval time.Duration `mapstructure:"due_soon_interval" yaml:"due_soon_interval"`

	// ActivityInterval is how often recent activity is recomputed.
	ActivityInterval time.Duration `mapstructure:"activity_interval" yaml:"activity_interval"`

	// Timezone names the location used for day-granularity due dates
	// (e.g., "Local", "UTC", "Asia/Ho_Chi_Minh").
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Location resolves Timezone, falling back to time.Local.
func (c FeedConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// MailServerConfig describes an SMTP or IMAP endpoint. Passwords are never
// stored here; they come from the environment or the system keyring.
type MailServerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// Enabled reports whether a host is configured.
func (c MailServerConfig) Enabled() bool {
	return c.Host != ""
}

// IMAPArchiveConfig configures where sent reminders are archived.
type IMAPArchiveConfig struct {
	MailServerConfig `mapstructure:",squash" yaml:",inline"`
	Mailbox          string `mapstructure:"mailbox" yaml:"mailbox"`
}

// ReminderConfig holds deadline reminder delivery settings.
type ReminderConfig struct {
	From           string            `mapstructure:"from" yaml:"from"`
	FallbackDomain string            `mapstructure:"fallback_domain" yaml:"fallback_domain"`
	SMTP           MailServerConfig  `mapstructure:"smtp" yaml:"smtp"`
	IMAP           IMAPArchiveConfig `mapstructure:"imap" yaml:"imap"`
}

// IdentityConfig names the principal the engine runs for.
type IdentityConfig struct {
	User string `mapstructure:"user" yaml:"user"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// Theme is one of auto, dark, light or mono.
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Feed     FeedConfig     `mapstructure:"feed" yaml:"feed"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// Default refresh cadence.
const (
	DefaultDueSoonInterval  = 5 * time.Minute
	DefaultActivityInterval = 30 * time.Second
)

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskfeed/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskfeed", "config.yaml")
}

// DefaultDatabasePath returns ~/.local/share/taskfeed/taskfeed.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskfeed.db"
	}
	return filepath.Join(home, ".local", "share", "taskfeed", "taskfeed.db")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Feed: FeedConfig{
			DueSoonInterval:  DefaultDueSoonInterval,
			ActivityInterval: DefaultActivityInterval,
			Timezone:         "Local",
		},
		Reminder: ReminderConfig{
			From:           "TaskFeed <notifications@example.com>",
			FallbackDomain: "example.com",
			SMTP:           MailServerConfig{Port: "587"},
			IMAP: IMAPArchiveConfig{
				MailServerConfig: MailServerConfig{Port: "993", TLS: true},
				Mailbox:          "Sent",
			},
		},
		Display: DisplayConfig{Theme: "auto"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("feed.due_soon_interval", def.Feed.DueSoonInterval)
	v.SetDefault("feed.activity_interval", def.Feed.ActivityInterval)
	v.SetDefault("feed.timezone", def.Feed.Timezone)
	v.SetDefault("reminder.from", def.Reminder.From)
	v.SetDefault("reminder.fallback_domain", def.Reminder.FallbackDomain)
	v.SetDefault("reminder.smtp.port", def.Reminder.SMTP.Port)
	v.SetDefault("reminder.imap.port", def.Reminder.IMAP.Port)
	v.SetDefault("reminder.imap.tls", def.Reminder.IMAP.TLS)
	v.SetDefault("reminder.imap.mailbox", def.Reminder.IMAP.Mailbox)
	v.SetDefault("display.theme", def.Display.Theme)

	v.SetEnvPrefix("taskfeed")
	_ = v.BindEnv("identity.user", "TASKFEED_USER")
	_ = v.BindEnv("database.path", "TASKFEED_DB")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Feed.DueSoonInterval <= 0 {
		cfg.Feed.DueSoonInterval = DefaultDueSoonInterval
	}
	if cfg.Feed.ActivityInterval <= 0 {
		cfg.Feed.ActivityInterval = DefaultActivityInterval
	}
	if _, err := cfg.Feed.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database.path", cfg.Database.Path)
	v.Set("feed.due_soon_interval", cfg.Feed.DueSoonInterval.String())
	v.Set("feed.activity_interval", cfg.Feed.ActivityInterval.String())
	v.Set("feed.timezone", cfg.Feed.Timezone)
	v.Set("reminder.from", cfg.Reminder.From)
	v.Set("reminder.fallback_domain", cfg.Reminder.FallbackDomain)
	v.Set("reminder.smtp", map[string]any{
		"host":     cfg.Reminder.SMTP.Host,
		"port":     cfg.Reminder.SMTP.Port,
		"username": cfg.Reminder.SMTP.Username,
		"tls":      cfg.Reminder.SMTP.TLS,
	})
	v.Set("reminder.imap", map[string]any{
		"host":     cfg.Reminder.IMAP.Host,
		"port":     cfg.Reminder.IMAP.Port,
		"username": cfg.Reminder.IMAP.Username,
		"tls":      cfg.Reminder.IMAP.TLS,
		"mailbox":  cfg.Reminder.IMAP.Mailbox,
	})
	v.Set("identity.user", cfg.Identity.User)
	v.Set("display.theme", cfg.Display.Theme)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
