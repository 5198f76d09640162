package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/credential"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/reminder"
)

// RemindOptions holds flags for the remind command.
type RemindOptions struct {
	*RootOptions
	Yes    bool
	DryRun bool

	// confirm asks before sending; replaced in tests.
	confirm func(pending int) (bool, error)
	// sender overrides the SMTP sender; used in tests.
	sender reminder.Sender
}

// RemindReport is the result printed by the remind command.
type RemindReport struct {
	DryRun   bool            `json:"dry_run"`
	Checked  int             `json:"checked"`
	Sent     int             `json:"sent"`
	Pending  []ReminderEntry `json:"pending,omitempty"`
	Skipped  []SkippedEntry  `json:"skipped,omitempty"`
	Failures []FailureEntry  `json:"failures,omitempty"`
}

// ReminderEntry is one planned reminder.
type ReminderEntry struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	To     string `json:"to"`
}

// SkippedEntry is a due-soon task that gets no reminder.
type SkippedEntry struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// FailureEntry is a reminder that could not be delivered.
type FailureEntry struct {
	TaskID string `json:"task_id"`
	To     string `json:"to"`
	Error  string `json:"error"`
}

// NewRemindCommand creates the remind command.
func NewRemindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemindOptions{RootOptions: rootOpts, confirm: confirmSend}

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Email assignees about tasks due soon",
		Long: `Send a reminder email for every unfinished task due today or tomorrow.

Each task is reminded at most once per day. Tasks without an assignee are
skipped. The SMTP password is read from TASKFEED_SMTP_PASSWORD or the system
keyring (see "taskfeed credential set smtp").

Examples:
  taskfeed remind --dry-run
  taskfeed remind --yes --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemind(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "send without asking")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be sent")

	return cmd
}

func runRemind(ctx context.Context, opts *RemindOptions, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Feed.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving timezone", err)
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

	sender := opts.sender
	if sender == nil && !opts.DryRun {
		sender, err = smtpSender(cfg.Reminder.SMTP)
		if err != nil {
			return err
		}
	}

	dispatchOpts := []reminder.Option{reminder.WithLogger(opts.Logger())}
	if cfg.Reminder.IMAP.Enabled() && !opts.DryRun {
		archiver, err := imapArchiver(cfg.Reminder.IMAP)
		if err != nil {
			return err
		}
		dispatchOpts = append(dispatchOpts, reminder.WithArchiver(archiver))
	}

	d := reminder.New(st, st, sender, reminder.Config{
		From:           cfg.Reminder.From,
		FallbackDomain: cfg.Reminder.FallbackDomain,
		Location:       loc,
	}, dispatchOpts...)

	plan, err := d.Plan(ctx)
	if err != nil {
		return fmt.Errorf("planning reminders: %w", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	report := newRemindReport(plan)

	if opts.DryRun || len(plan.Pending) == 0 {
		report.DryRun = opts.DryRun
		return formatter.Success(report, report.render)
	}

	if !opts.Yes {
		ok, err := opts.confirm(len(plan.Pending))
		if err != nil {
			return fmt.Errorf("confirming: %w", err)
		}
		if !ok {
			report.DryRun = true
			return formatter.Success(report, report.render)
		}
	}

	res := d.Deliver(ctx, plan)
	report.applyResult(res)

	if err := res.Err(); err != nil {
		if ferr := formatter.Partial(report, err, report.render); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%d reminders failed", len(res.Failures)), err)
	}
	return formatter.Success(report, report.render)
}

func smtpSender(cfg model.MailServerConfig) (*reminder.SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, NewExitError(ExitCommandError, "reminder.smtp.host is not configured")
	}
	var password string
	if cfg.Username != "" {
		var err error
		password, err = credential.Resolve(
			credential.MailPasswordEnv("smtp"),
			credential.MailPasswordKey("smtp", cfg.Username, cfg.Host),
		)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "resolving SMTP password", err)
		}
	}
	return reminder.NewSMTPSender(reminder.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: password,
		TLS:      cfg.TLS,
	}), nil
}

func imapArchiver(cfg model.IMAPArchiveConfig) (*reminder.IMAPArchiver, error) {
	password, err := credential.Resolve(
		credential.MailPasswordEnv("imap"),
		credential.MailPasswordKey("imap", cfg.Username, cfg.Host),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolving IMAP password", err)
	}
	return reminder.NewIMAPArchiver(reminder.IMAPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: password,
		TLS:      cfg.TLS,
		Mailbox:  cfg.Mailbox,
	}), nil
}

func confirmSend(pending int) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Send %d reminder emails?", pending)).
		Affirmative("Send").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func newRemindReport(plan reminder.Plan) *RemindReport {
	r := &RemindReport{Checked: plan.Checked}
	for _, p := range plan.Pending {
		r.Pending = append(r.Pending, ReminderEntry{TaskID: p.Task.ID, Title: p.Task.Title, To: p.To})
	}
	for _, s := range plan.Skipped {
		r.Skipped = append(r.Skipped, SkippedEntry{TaskID: s.Task.ID, Title: s.Task.Title, Reason: s.Reason})
	}
	return r
}

func (r *RemindReport) applyResult(res reminder.Result) {
	r.Sent = res.Sent
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, FailureEntry{TaskID: f.TaskID, To: f.To, Error: f.Err.Error()})
	}
}

func (r *RemindReport) render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	verb := "sent"
	if r.DryRun {
		verb = "would send"
	}
	fmt.Fprintf(tw, "%d due soon, %d %s, %d skipped, %d failed\n",
		r.Checked, r.sentOrPending(), verb, len(r.Skipped), len(r.Failures))

	if r.DryRun {
		for _, p := range r.Pending {
			fmt.Fprintf(tw, "  send\t%s\t%s\n", p.Title, p.To)
		}
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(tw, "  skip\t%s\t%s\n", s.Title, s.Reason)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(tw, "  fail\t%s\t%s\n", f.To, f.Error)
	}
	return tw.Flush()
}

func (r *RemindReport) sentOrPending() int {
	if r.DryRun {
		return len(r.Pending)
	}
	return r.Sent
}
