package model

import "time"

// MaxRecentActivities caps the activity section of a feed.
const MaxRecentActivities = 10

// NotificationFeed is one computed snapshot of deadlines and recent
// activity. It is rebuilt on every recomputation and never mutated after
// construction.
type NotificationFeed struct {
	// DueSoonTasks is ordered by due date, earliest first.
	DueSoonTasks []Task `json:"due_soon_tasks"`

	// RecentActivities is ordered by OccurredAt, newest first.
	RecentActivities []ActivityEvent `json:"recent_activities"`

	// TotalCount is len(DueSoonTasks) + len(RecentActivities).
	TotalCount int `json:"total_count"`

	// GeneratedAt is when the snapshot was assembled. Zero for the empty feed.
	GeneratedAt time.Time `json:"generated_at"`
}

// IsEmpty reports whether the feed has nothing to show.
func (f NotificationFeed) IsEmpty() bool {
	return f.TotalCount == 0
}
