package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskfeed/internal/model"
)

// taskRow mirrors the tasks table.
type taskRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	Status         string         `db:"status"`
	Priority       string         `db:"priority"`
	DueDate        sql.NullString `db:"due_date"`
	Assignee       string         `db:"assignee"`
	AssigneeEmail  string         `db:"assignee_email"`
	CreatedAt      sql.NullString `db:"created_at"`
	UpdatedAt      sql.NullString `db:"updated_at"`
	LastReminderAt sql.NullString `db:"last_reminder_at"`
}

func (r taskRow) toModel() (model.Task, error) {
	task := model.Task{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		Priority:      r.Priority,
		Assignee:      r.Assignee,
		AssigneeEmail: r.AssigneeEmail,
	}

	if r.DueDate.Valid && r.DueDate.String != "" {
		due, err := time.Parse(model.DateLayout, r.DueDate.String)
		if err != nil {
			return model.Task{}, fmt.Errorf("parsing due_date of task %s: %w", r.ID, err)
		}
		task.DueDate = &due
	}

	var err error
	if task.CreatedAt, err = parseTimePtr(r.CreatedAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s created_at: %w", r.ID, err)
	}
	if task.UpdatedAt, err = parseTimePtr(r.UpdatedAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s updated_at: %w", r.ID, err)
	}
	if task.LastReminderAt, err = parseTimePtr(r.LastReminderAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s last_reminder_at: %w", r.ID, err)
	}

	return task, nil
}

func dueDateValue(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateLayout), Valid: true}
}

// UpsertTask inserts a task or replaces an existing one with the same ID.
// Missing ID, status, priority and created_at are filled in.
func (s *SQLiteStore) UpsertTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if !model.ValidStatus(task.Status) {
		return fmt.Errorf("invalid task status %q", task.Status)
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(task.Priority) {
		return fmt.Errorf("invalid task priority %q", task.Priority)
	}
	if task.CreatedAt == nil {
		now := s.now()
		task.CreatedAt = &now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing,
		"SELECT COUNT(*) FROM tasks WHERE id = ?", task.ID); err != nil {
		return fmt.Errorf("checking task %s: %w", task.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority,
			due_date, assignee, assignee_email,
			created_at, updated_at, last_reminder_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			due_date = excluded.due_date,
			assignee = excluded.assignee,
			assignee_email = excluded.assignee_email,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			last_reminder_at = excluded.last_reminder_at`,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		dueDateValue(task.DueDate), task.Assignee, task.AssigneeEmail,
		formatTimePtr(task.CreatedAt), formatTimePtr(task.UpdatedAt),
		formatTimePtr(task.LastReminderAt),
	)
	if err != nil {
		return fmt.Errorf("upserting task %s: %w", task.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task %s: %w", task.ID, err)
	}

	evType := EventInsert
	if existing > 0 {
		evType = EventUpdate
	}
	s.broker.publish(ChangeEvent{Table: TableTasks, Type: evType, RowID: task.ID})
	return nil
}

// DeleteTask removes a task by ID. Its audit rows are kept.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.broker.publish(ChangeEvent{Table: TableTasks, Type: EventDelete, RowID: id})
	return nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	id string,
) (*model.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	task, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarkReminderSent stamps last_reminder_at without touching updated_at.
func (s *SQLiteStore) MarkReminderSent(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET last_reminder_at = ? WHERE id = ?",
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("marking reminder for task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.broker.publish(ChangeEvent{Table: TableTasks, Type: EventUpdate, RowID: id})
	return nil
}

// QueryTasks retrieves tasks matching the filter.
func (s *SQLiteStore) QueryTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	query, args := buildTaskQuery(filter)

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	return taskRowsToModel(rows)
}

// tasksByID loads the given tasks keyed by ID. Missing IDs are absent
// from the result.
func (s *SQLiteStore) tasksByID(
	ctx context.Context,
	ids []string,
) (map[string]model.Task, error) {
	result := make(map[string]model.Task, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM tasks WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("expanding task ids: %w", err)
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("loading tasks by id: %w", err)
	}

	tasks, err := taskRowsToModel(rows)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		result[t.ID] = t
	}
	return result, nil
}

func taskRowsToModel(rows []taskRow) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter.
func buildTaskQuery(filter TaskFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.ExcludeStatus != nil {
		conditions = append(conditions, "status != ?")
		args = append(args, *filter.ExcludeStatus)
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, filter.DueFrom.Format(model.DateLayout))
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, filter.DueTo.Format(model.DateLayout))
	}
	if filter.ChangedSince != nil {
		since := formatTime(*filter.ChangedSince)
		conditions = append(conditions, "(updated_at >= ? OR created_at >= ?)")
		args = append(args, since, since)
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "created_at"
	if filter.SortBy != "" {
		allowed := map[string]string{
			"due_date":   "due_date",
			"created_at": "created_at",
			"updated_at": "updated_at",
			"changed_at": "COALESCE(MAX(updated_at, created_at), updated_at, created_at)",
			"title":      "title",
		}
		if col, ok := allowed[filter.SortBy]; ok {
			sortBy = col
		}
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return query, args
}
