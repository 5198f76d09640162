package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/querycache"
	"github.com/nhle/taskfeed/internal/ui/feedlist"
)

// cacheSize bounds the query cache. The engine owns three keys.
const cacheSize = 16

// FeedOptions holds flags for the feed command.
type FeedOptions struct {
	*RootOptions
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the notification feed once",
		Long: `Compute the notification feed once and print it.

The feed lists tasks due today or tomorrow, followed by up to ten grouped
activity entries from the last hour.

Examples:
  taskfeed feed
  taskfeed feed --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runFeed(ctx context.Context, opts *FeedOptions, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Identity.User == "" {
		return WrapExitError(ExitCommandError, "set identity.user or TASKFEED_USER", feed.ErrNoPrincipal)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			opts.Logger().Error("closing database", "error", err)
		}
	}()

	engine, err := newEngine(st, cfg, opts.Logger())
	if err != nil {
		return err
	}

	f, err := engine.Recompute(ctx, feed.QueryAll)
	if errors.Is(err, context.Canceled) {
		return err
	}

	loc, _ := cfg.Feed.Location()
	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	render := func(w io.Writer) error { return renderFeed(w, f, loc) }
	if err != nil {
		return formatter.Partial(f, err, render)
	}
	return formatter.Success(f, render)
}

// newEngine builds a feed engine over st from cfg.
func newEngine(st feed.Source, cfg *model.AppConfig, logger *slog.Logger) (*feed.Engine, error) {
	loc, err := cfg.Feed.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolving timezone", err)
	}
	cache, err := querycache.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return feed.New(st, cache, feed.Options{
		DueSoonInterval:  cfg.Feed.DueSoonInterval,
		ActivityInterval: cfg.Feed.ActivityInterval,
		Location:         loc,
		Principal:        cfg.Identity.User,
		Logger:           logger,
	}), nil
}

func renderFeed(w io.Writer, f model.NotificationFeed, loc *time.Location) error {
	now := f.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}
	today := now.In(loc).Format(model.DateLayout)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "DUE SOON (%d)\n", len(f.DueSoonTasks))
	if len(f.DueSoonTasks) == 0 {
		fmt.Fprintln(tw, "  nothing due today or tomorrow")
	}
	for _, t := range f.DueSoonTasks {
		when := "tomorrow"
		if t.DueDate != nil && t.DueDate.Format(model.DateLayout) <= today {
			when = "today"
		}
		assignee := t.Assignee
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", when, t.Priority, t.Title, assignee)
	}

	fmt.Fprintf(tw, "\nRECENT ACTIVITY (%d)\n", len(f.RecentActivities))
	if len(f.RecentActivities) == 0 {
		fmt.Fprintln(tw, "  no activity in the last hour")
	}
	for _, e := range f.RecentActivities {
		actor := e.ActorName
		if actor == "" {
			actor = "someone"
		}
		fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\n",
			feedlist.RelativeTime(e.OccurredAt, now),
			actor, feedlist.ActionLabel(e.Action),
			e.TaskTitle,
			feedlist.ChangeSummary(e),
		)
	}

	return tw.Flush()
}
