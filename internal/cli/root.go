// Package cli implements the taskfeed command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taskfeed CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taskfeed",
		Short: "Task deadlines and activity in one feed",
		Long: `taskfeed merges tasks that are due today or tomorrow with a grouped
stream of recent task activity, and keeps it fresh as the task database
changes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", model.DefaultConfigPath(), "config file path")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "sqlite database path (overrides config)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))
	cmd.AddCommand(NewRemindCommand(opts))
	cmd.AddCommand(NewCredentialCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the logger installed by the root command, or a discarding
// one when the command runs outside it.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	return cfg, nil
}

// openStore opens the configured database, creating its directory.
func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "creating database directory", err)
		}
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening database "+path, err)
	}
	return s, nil
}
