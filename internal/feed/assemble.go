package feed

import (
	"time"

	"github.com/nhle/taskfeed/internal/model"
)

// Assemble builds a feed from the due-soon list and grouped activity. Both
// lists keep their own order; a task may appear in each.
func Assemble(dueSoon []model.Task, activities []model.ActivityEvent, at time.Time) model.NotificationFeed {
	tasks := make([]model.Task, len(dueSoon))
	copy(tasks, dueSoon)

	events := make([]model.ActivityEvent, len(activities))
	copy(events, activities)

	return model.NotificationFeed{
		DueSoonTasks:     tasks,
		RecentActivities: events,
		TotalCount:       len(tasks) + len(events),
		GeneratedAt:      at,
	}
}
