package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

// Lookback is how far back raw activity is considered.
const Lookback = time.Hour

// ErrAuditLogUnavailable marks an audit-log read failure. The ingestor
// recovers from it by synthesizing activity from task timestamps.
var ErrAuditLogUnavailable = errors.New("audit log unavailable")

// fallbackNamespace seeds deterministic ids for synthesized events.
var fallbackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("taskfeed:fallback-activity"))

// Ingestion is the raw activity read for one cycle.
type Ingestion struct {
	Events []model.ActivityEvent

	// Fallback is set when Events were synthesized from tasks because
	// the audit log could not be read.
	Fallback bool

	// AuditErr is the audit-log failure that triggered the fallback.
	AuditErr error
}

// Ingestor reads recent audit-log rows and falls back to synthesizing
// activity from task timestamps when the log cannot be read.
type Ingestor struct {
	activities store.ActivityReader
	tasks      store.TaskReader
	logger     *slog.Logger
}

// NewIngestor creates an Ingestor. A nil logger discards log output.
func NewIngestor(
	activities store.ActivityReader,
	tasks store.TaskReader,
	logger *slog.Logger,
) *Ingestor {
	if logger == nil {
		logger = discardLogger()
	}
	return &Ingestor{activities: activities, tasks: tasks, logger: logger}
}

// Ingest returns activity from the last Lookback, newest first. Only a
// failure of the fallback path is returned as an error.
func (in *Ingestor) Ingest(ctx context.Context, now time.Time) (Ingestion, error) {
	since := now.Add(-Lookback)

	events, err := in.activities.QueryActivities(ctx, store.ActivityFilter{
		Since:    &since,
		WithTask: true,
		SortDesc: true,
	})
	if err == nil {
		return Ingestion{Events: events}, nil
	}
	if ctx.Err() != nil {
		return Ingestion{}, ctx.Err()
	}

	auditErr := fmt.Errorf("%w: %v", ErrAuditLogUnavailable, err)
	in.logger.Warn("audit log read failed, synthesizing activity from tasks",
		"error", err,
		"since", since,
	)

	synthetic, err := in.Synthesize(ctx, now)
	if err != nil {
		return Ingestion{AuditErr: auditErr}, err
	}
	return Ingestion{Events: synthetic, Fallback: true, AuditErr: auditErr}, nil
}

// Synthesize derives one activity event per task created or updated in
// the last Lookback, newest first.
func (in *Ingestor) Synthesize(ctx context.Context, now time.Time) ([]model.ActivityEvent, error) {
	since := now.Add(-Lookback)

	tasks, err := in.tasks.QueryTasks(ctx, store.TaskFilter{
		ChangedSince: &since,
		SortBy:       "changed_at",
		SortDesc:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing activity: %w", err)
	}

	seen := make(map[string]bool, len(tasks))
	events := make([]model.ActivityEvent, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		ev, ok := synthesizeEvent(t, since)
		if !ok {
			continue
		}
		seen[t.ID] = true
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	return events, nil
}

// synthesizeEvent builds the fallback event for t, or false when t has no
// timestamp inside the window.
func synthesizeEvent(t model.Task, since time.Time) (model.ActivityEvent, bool) {
	occurred, ok := t.LastChangedAt()
	if !ok || occurred.Before(since) {
		return model.ActivityEvent{}, false
	}

	action := model.ActionCreated
	var newValue *string
	if t.UpdatedAt != nil && (t.CreatedAt == nil || t.UpdatedAt.After(*t.CreatedAt)) {
		action = model.ActionUpdated
		newValue = model.StringPtr(t.Status)
	}

	actor := t.Assignee
	if actor == "" {
		actor = model.UnknownActor
	}

	snapshot := t
	name := fmt.Sprintf("%s/%d", t.ID, occurred.UnixNano())
	return model.ActivityEvent{
		ID:         uuid.NewSHA1(fallbackNamespace, []byte(name)).String(),
		TaskID:     t.ID,
		TaskTitle:  t.Title,
		Action:     action,
		NewValue:   newValue,
		ActorName:  actor,
		OccurredAt: occurred,
		SourceTask: &snapshot,
	}, true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
