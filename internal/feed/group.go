package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/nhle/taskfeed/internal/model"
)

// ClusterWindow is the span within which changes to one task are folded
// into a single feed entry.
const ClusterWindow = 5 * time.Minute

// Group collapses events into at most one entry per task per cluster,
// processing them in the order given. The result is sorted newest first
// and capped at model.MaxRecentActivities.
//
// Within a cluster the first event seen for a task is the representative.
// A later event in the same cluster replaces it as an "updated" entry that
// keeps the representative's OldValue; an earlier or equal one is dropped.
// An event more than ClusterWindow away starts a new burst, stored under
// its own key, which then becomes the task's representative.
func Group(events []model.ActivityEvent) []model.ActivityEvent {
	retained := make(map[string]model.ActivityEvent)
	// task ID -> key of the current representative
	current := make(map[string]string)
	// keys in insertion order, so equal timestamps keep their input order
	var order []string

	for _, e := range events {
		repKey, ok := current[e.TaskID]
		if !ok {
			key := uniqueKey(retained, e.TaskID)
			retained[key] = e
			current[e.TaskID] = key
			order = append(order, key)
			continue
		}

		rep := retained[repKey]
		delta := e.OccurredAt.Sub(rep.OccurredAt)
		if delta < 0 {
			delta = -delta
		}

		switch {
		case delta > ClusterWindow:
			key := uniqueKey(retained, burstKey(e.TaskID, e.OccurredAt))
			retained[key] = e
			current[e.TaskID] = key
			order = append(order, key)

		case e.OccurredAt.After(rep.OccurredAt):
			retained[repKey] = merge(rep, e)

		default:
			// Older duplicate inside the cluster.
		}
	}

	out := make([]model.ActivityEvent, len(order))
	for i, key := range order {
		out[i] = retained[key]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if len(out) > model.MaxRecentActivities {
		out = out[:model.MaxRecentActivities]
	}
	return out
}

// merge folds a later event into the representative of its cluster.
func merge(rep, later model.ActivityEvent) model.ActivityEvent {
	merged := later
	merged.Action = model.ActionUpdated
	merged.OldValue = rep.OldValue
	return merged
}

// burstKey scopes an extra burst to its task and 5-minute bucket.
func burstKey(taskID string, at time.Time) string {
	return fmt.Sprintf("%s@%d", taskID, at.Truncate(ClusterWindow).Unix())
}

// uniqueKey returns base, or base#n when base is already retained.
func uniqueKey(retained map[string]model.ActivityEvent, base string) string {
	key := base
	for n := 2; ; n++ {
		if _, taken := retained[key]; !taken {
			return key
		}
		key = fmt.Sprintf("%s#%d", base, n)
	}
}
