// Package reminder emails assignees about tasks that are due soon, at most
// once per task per day.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

// Skip reasons.
const (
	ReasonNoAssignee  = "no assignee"
	ReasonAlreadySent = "already reminded today"
	ReasonNoRecipient = "no recipient address"
)

// Marker stamps a task once its reminder is delivered.
type Marker interface {
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

// Reminder is one pending delivery.
type Reminder struct {
	Task model.Task
	To   string
}

// Skipped is a due-soon task that gets no reminder this run.
type Skipped struct {
	Task   model.Task
	Reason string
}

// Plan is what a run would send.
type Plan struct {
	Checked int
	Pending []Reminder
	Skipped []Skipped
}

// Failure is a reminder that could not be delivered.
type Failure struct {
	TaskID string
	To     string
	Err    error
}

// Result summarizes a run.
type Result struct {
	Checked  int
	Sent     int
	Skipped  int
	Failures []Failure
}

// Err joins the per-task failures, or nil.
func (r Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("task %s: %w", f.TaskID, f.Err)
	}
	return errors.Join(errs...)
}

// Config holds dispatcher settings.
type Config struct {
	From           string
	FallbackDomain string
	Location       *time.Location
}

// Dispatcher finds due-soon tasks and delivers their reminders.
type Dispatcher struct {
	scanner  *feed.Scanner
	marker   Marker
	sender   Sender
	archiver Archiver
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithArchiver keeps a copy of each sent reminder.
func WithArchiver(a Archiver) Option {
	return func(d *Dispatcher) { d.archiver = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher reading tasks from tasks and stamping them
// through marker.
func New(tasks store.TaskReader, marker Marker, sender Sender, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	d := &Dispatcher{
		scanner: feed.NewScanner(tasks, cfg.Location),
		marker:  marker,
		sender:  sender,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan scans due-soon tasks and decides which get a reminder.
func (d *Dispatcher) Plan(ctx context.Context) (Plan, error) {
	now := d.now()
	tasks, err := d.scanner.Scan(ctx, now)
	if err != nil {
		return Plan{}, err
	}

	today := now.In(d.cfg.Location).Format(model.DateLayout)
	plan := Plan{Checked: len(tasks)}
	for _, t := range tasks {
		switch {
		case t.Assignee == "":
			plan.Skipped = append(plan.Skipped, Skipped{Task: t, Reason: ReasonNoAssignee})
		case t.LastReminderAt != nil &&
			t.LastReminderAt.In(d.cfg.Location).Format(model.DateLayout) >= today:
			plan.Skipped = append(plan.Skipped, Skipped{Task: t, Reason: ReasonAlreadySent})
		default:
			to := Recipient(t, d.cfg.FallbackDomain)
			if to == "" {
				plan.Skipped = append(plan.Skipped, Skipped{Task: t, Reason: ReasonNoRecipient})
				continue
			}
			plan.Pending = append(plan.Pending, Reminder{Task: t, To: to})
		}
	}
	return plan, nil
}

// Deliver sends every pending reminder in plan. A failed send is recorded
// and the run continues; only a cancelled context stops it early.
func (d *Dispatcher) Deliver(ctx context.Context, plan Plan) Result {
	res := Result{Checked: plan.Checked, Skipped: len(plan.Skipped)}

	for _, r := range plan.Pending {
		if ctx.Err() != nil {
			res.Failures = append(res.Failures, Failure{TaskID: r.Task.ID, To: r.To, Err: ctx.Err()})
			continue
		}
		if err := d.deliver(ctx, r); err != nil {
			d.logger.Warn("reminder failed", "task", r.Task.ID, "to", r.To, "error", err)
			res.Failures = append(res.Failures, Failure{TaskID: r.Task.ID, To: r.To, Err: err})
			continue
		}
		res.Sent++
	}

	d.logger.Info("reminders dispatched",
		"checked", res.Checked,
		"sent", res.Sent,
		"skipped", res.Skipped,
		"failed", len(res.Failures),
	)
	return res
}

// Run plans and delivers in one step.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	plan, err := d.Plan(ctx)
	if err != nil {
		return Result{}, err
	}
	return d.Deliver(ctx, plan), nil
}

func (d *Dispatcher) deliver(ctx context.Context, r Reminder) error {
	now := d.now()

	msg, err := Compose(r.Task, d.cfg.From, r.To, now, d.cfg.Location)
	if err != nil {
		return err
	}

	if err := d.sender.Send(ctx, d.cfg.From, []string{r.To}, msg); err != nil {
		return fmt.Errorf("sending to %s: %w", r.To, err)
	}

	if err := d.marker.MarkReminderSent(ctx, r.Task.ID, now); err != nil {
		return fmt.Errorf("recording reminder: %w", err)
	}

	if d.archiver != nil {
		if err := d.archiver.Archive(ctx, msg, now); err != nil {
			d.logger.Warn("archiving reminder failed", "task", r.Task.ID, "error", err)
		}
	}

	d.logger.Debug("reminder sent", "task", r.Task.ID, "to", r.To)
	return nil
}
