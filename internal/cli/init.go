package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/model"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	User     string
	Timezone string
	Force    bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a config file with default settings.

Examples:
  taskfeed init --user alice
  taskfeed init --user alice --timezone Europe/Berlin --config ./taskfeed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "principal the feed runs for")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "timezone for due dates (default Local)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(opts *InitOptions, out io.Writer) error {
	if _, err := os.Stat(opts.ConfigPath); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", opts.ConfigPath))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return WrapExitError(ExitCommandError, "checking config file", err)
	}

	cfg := model.DefaultConfig()
	cfg.Identity.User = opts.User
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.Timezone != "" {
		cfg.Feed.Timezone = opts.Timezone
		if _, err := cfg.Feed.Location(); err != nil {
			return WrapExitError(ExitCommandError, "invalid timezone", err)
		}
	}

	if err := model.SaveConfig(opts.ConfigPath, cfg); err != nil {
		return WrapExitError(ExitCommandError, "saving config", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	return formatter.Success(map[string]string{"config": opts.ConfigPath}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "wrote %s\n", opts.ConfigPath)
		return err
	})
}
