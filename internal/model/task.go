package model

import "time"

// Task status values.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// Task priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DateLayout is the storage and display layout for due dates.
const DateLayout = "2006-01-02"

// Task is a tracked work item. The feed engine only ever reads tasks.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title"`

	// Description is the full body text.
	Description string `json:"description,omitempty"`

	// Status is one of the Status* constants.
	Status string `json:"status"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority"`

	// DueDate is the deadline at day granularity, or nil when unset.
	DueDate *time.Time `json:"due_date,omitempty"`

	// Assignee is the display name of the assigned person.
	Assignee string `json:"assignee,omitempty"`

	// AssigneeEmail is where deadline reminders are delivered.
	AssigneeEmail string `json:"assignee_email,omitempty"`

	// CreatedAt and UpdatedAt are nil for rows imported without timestamps.
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// LastReminderAt is when a deadline reminder was last sent.
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`
}

// IsDone reports whether the task is complete.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// LastChangedAt returns the later of UpdatedAt and CreatedAt, and false
// when neither is set.
func (t Task) LastChangedAt() (time.Time, bool) {
	switch {
	case t.UpdatedAt != nil && t.CreatedAt != nil:
		if t.UpdatedAt.After(*t.CreatedAt) {
			return *t.UpdatedAt, true
		}
		return *t.CreatedAt, true
	case t.UpdatedAt != nil:
		return *t.UpdatedAt, true
	case t.CreatedAt != nil:
		return *t.CreatedAt, true
	}
	return time.Time{}, false
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
