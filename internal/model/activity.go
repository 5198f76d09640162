package model

import "time"

// Action identifies what kind of change an ActivityEvent records.
type Action string

const (
	ActionCreated         Action = "created"
	ActionUpdated         Action = "updated"
	ActionDeleted         Action = "deleted"
	ActionStatusChanged   Action = "status_changed"
	ActionAssigned        Action = "assigned"
	ActionPriorityChanged Action = "priority_changed"
	ActionDueDateChanged  Action = "due_date_changed"
)

// ValidAction reports whether a is one of the known actions.
func ValidAction(a Action) bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionStatusChanged,
		ActionAssigned, ActionPriorityChanged, ActionDueDateChanged:
		return true
	}
	return false
}

// UnknownActor is shown when an activity has no known actor.
const UnknownActor = "Unknown"

// ActivityEvent is one observed change to a task, either read from the
// audit log or synthesized from task timestamps.
type ActivityEvent struct {
	// ID is the audit row id, or a synthesized id for fallback entries.
	ID string `json:"id"`

	// TaskID is the task this event concerns. Never empty.
	TaskID string `json:"task_id"`

	// TaskTitle is the task title at the time of the event.
	TaskTitle string `json:"task_title"`

	Action Action `json:"action"`

	// OldValue and NewValue are free-form renderings of the changed field.
	OldValue *string `json:"old_value,omitempty"`
	NewValue *string `json:"new_value,omitempty"`

	// ActorName is the display name of whoever made the change.
	ActorName string `json:"actor_name,omitempty"`

	// OccurredAt is the ordering key.
	OccurredAt time.Time `json:"occurred_at"`

	// SourceTask is the task snapshot joined at aggregation time, if any.
	SourceTask *Task `json:"source_task,omitempty"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
