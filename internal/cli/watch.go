package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/app"
	appsync "github.com/nhle/taskfeed/internal/sync"
	"github.com/nhle/taskfeed/internal/theme"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	LogFile string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the live notification feed",
		Long: `Open a full-screen view of the notification feed.

The feed refreshes when the task database changes, and on a timer when
change notifications are unavailable. Press r to refresh, tab to switch
sections, enter for details, ? for help and q to quit.

Logs are discarded while the view is open unless --log-file is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "append logs to this file")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Feed.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving timezone", err)
	}
	if err := theme.Apply(cfg.Display.Theme); err != nil {
		return WrapExitError(ExitCommandError, "applying display.theme", err)
	}

	logger := slog.New(slog.DiscardHandler)
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening log file", err)
		}
		defer f.Close()
		logger = newLogger(f, opts.Verbose)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	engine, err := newEngine(st, cfg, logger)
	if err != nil {
		return err
	}
	poller := appsync.New(engine)
	defer poller.Stop()

	m := app.New(poller, st, app.Options{
		Principal: cfg.Identity.User,
		Location:  loc,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running watch view: %w", err)
	}

	if fm, ok := final.(app.Model); ok && fm.Err() != nil {
		return WrapExitError(ExitCommandError, "starting feed engine", fm.Err())
	}
	return nil
}
