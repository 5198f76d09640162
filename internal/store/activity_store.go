package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskfeed/internal/model"
)

// activityRow mirrors the task_activities table.
type activityRow struct {
	ID         string         `db:"id"`
	TaskID     string         `db:"task_id"`
	TaskTitle  string         `db:"task_title"`
	Action     string         `db:"action"`
	OldValue   sql.NullString `db:"old_value"`
	NewValue   sql.NullString `db:"new_value"`
	ActorName  sql.NullString `db:"actor_name"`
	OccurredAt string         `db:"occurred_at"`
}

func (r activityRow) toModel() (model.ActivityEvent, error) {
	occurred, err := time.Parse(timeLayout, r.OccurredAt)
	if err != nil {
		return model.ActivityEvent{}, fmt.Errorf("activity %s occurred_at: %w", r.ID, err)
	}

	return model.ActivityEvent{
		ID:         r.ID,
		TaskID:     r.TaskID,
		TaskTitle:  r.TaskTitle,
		Action:     model.Action(r.Action),
		OldValue:   stringPtr(r.OldValue),
		NewValue:   stringPtr(r.NewValue),
		ActorName:  r.ActorName.String,
		OccurredAt: occurred,
	}, nil
}

// RecordActivity appends a row to the audit log. ID and OccurredAt are
// filled in when empty.
func (s *SQLiteStore) RecordActivity(
	ctx context.Context,
	event model.ActivityEvent,
) error {
	if event.TaskID == "" {
		return fmt.Errorf("activity task id must not be empty")
	}
	if !model.ValidAction(event.Action) {
		return fmt.Errorf("invalid activity action %q", event.Action)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	var actor sql.NullString
	if event.ActorName != "" {
		actor = sql.NullString{String: event.ActorName, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_activities (
			id, task_id, task_title, action,
			old_value, new_value, actor_name, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TaskID, event.TaskTitle, string(event.Action),
		nullString(event.OldValue), nullString(event.NewValue), actor,
		formatTime(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("recording activity for task %s: %w", event.TaskID, err)
	}

	s.broker.publish(ChangeEvent{Table: TableActivities, Type: EventInsert, RowID: event.ID})
	return nil
}

// QueryActivities retrieves audit rows matching the filter, optionally
// joined with the current snapshot of their task.
func (s *SQLiteStore) QueryActivities(
	ctx context.Context,
	filter ActivityFilter,
) ([]model.ActivityEvent, error) {
	var conditions []string
	var args []interface{}

	if filter.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	if filter.TaskID != nil {
		conditions = append(conditions, "task_id = ?")
		args = append(args, *filter.TaskID)
	}

	query := "SELECT * FROM task_activities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY occurred_at %s, id %s", direction, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}

	events := make([]model.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		ev, err := r.toModel()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if !filter.WithTask || len(events) == 0 {
		return events, nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, ev := range events {
		if !seen[ev.TaskID] {
			seen[ev.TaskID] = true
			ids = append(ids, ev.TaskID)
		}
	}

	tasks, err := s.tasksByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("joining activity tasks: %w", err)
	}
	for i := range events {
		if t, ok := tasks[events[i].TaskID]; ok {
			snapshot := t
			events[i].SourceTask = &snapshot
		}
	}

	return events, nil
}
