package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/taskfeed/internal/model"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// TaskFilter controls filtering and sorting for task queries.
type TaskFilter struct {
	// ExcludeStatus drops tasks in this status (e.g., "done").
	ExcludeStatus *string

	// DueFrom and DueTo bound the due date, inclusive, at day granularity.
	// Tasks without a due date never match when either bound is set.
	DueFrom *time.Time
	DueTo   *time.Time

	// ChangedSince keeps tasks whose updated_at or created_at is at or
	// after this instant.
	ChangedSince *time.Time

	SortBy   string // "due_date", "created_at", "updated_at", "changed_at", "title"
	SortDesc bool
	Limit    int
}

// ActivityFilter controls filtering and sorting for audit-log queries.
type ActivityFilter struct {
	// Since keeps rows with occurred_at at or after this instant.
	Since *time.Time

	// TaskID restricts rows to a single task.
	TaskID *string

	// WithTask joins each row with its task snapshot when the task
	// still exists.
	WithTask bool

	SortDesc bool
	Limit    int
}

// TaskReader is the read side consumed by the due-soon scanner and the
// fallback synthesizer.
type TaskReader interface {
	QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
}

// ActivityReader is the read side consumed by the activity ingestor.
type ActivityReader interface {
	QueryActivities(ctx context.Context, filter ActivityFilter) ([]model.ActivityEvent, error)
}

// Subscriber opens and closes change-notification subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, tables []Table, mask EventMask) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

// Store defines the persistence interface for tasks and their audit log.
type Store interface {
	TaskReader
	ActivityReader
	Subscriber

	// === Task plumbing ===

	UpsertTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error

	// === Audit log ===

	RecordActivity(ctx context.Context, event model.ActivityEvent) error

	Close() error
}
