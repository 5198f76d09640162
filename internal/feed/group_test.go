package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/model"
)

var base = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time {
	return base.Add(offset)
}

func event(id, taskID string, action model.Action, occurred time.Time) model.ActivityEvent {
	return model.ActivityEvent{
		ID:         id,
		TaskID:     taskID,
		TaskTitle:  "Task " + taskID,
		Action:     action,
		ActorName:  "alice",
		OccurredAt: occurred,
	}
}

func TestGroup_SameClusterCollapses(t *testing.T) {
	events := []model.ActivityEvent{
		event("e2", "T1", model.ActionUpdated, at(2*time.Minute)),
		event("e1", "T1", model.ActionUpdated, at(0)),
	}

	got := Group(events)

	require.Len(t, got, 1)
	assert.Equal(t, "T1", got[0].TaskID)
	assert.Equal(t, model.ActionUpdated, got[0].Action)
	assert.Equal(t, at(2*time.Minute), got[0].OccurredAt)
}

func TestGroup_AscendingInputMergesIntoUpdated(t *testing.T) {
	created := event("e1", "T1", model.ActionCreated, at(0))
	created.OldValue = model.StringPtr("none")
	changed := event("e2", "T1", model.ActionStatusChanged, at(2*time.Minute))
	changed.OldValue = model.StringPtr("todo")
	changed.NewValue = model.StringPtr("in-progress")

	got := Group([]model.ActivityEvent{created, changed})

	require.Len(t, got, 1)
	assert.Equal(t, model.ActionUpdated, got[0].Action)
	assert.Equal(t, at(2*time.Minute), got[0].OccurredAt)
	assert.Equal(t, "e2", got[0].ID)
	require.NotNil(t, got[0].OldValue)
	assert.Equal(t, "none", *got[0].OldValue, "representative's old value is kept")
	require.NotNil(t, got[0].NewValue)
	assert.Equal(t, "in-progress", *got[0].NewValue)
}

func TestGroup_SeparateClustersKeepBoth(t *testing.T) {
	events := []model.ActivityEvent{
		event("e2", "T1", model.ActionUpdated, at(10*time.Minute)),
		event("e1", "T1", model.ActionUpdated, at(0)),
	}

	got := Group(events)

	require.Len(t, got, 2)
	assert.Equal(t, at(10*time.Minute), got[0].OccurredAt)
	assert.Equal(t, at(0), got[1].OccurredAt)
}

func TestGroup_WindowBoundary(t *testing.T) {
	tests := []struct {
		name  string
		delta time.Duration
		want  int
	}{
		{"exactly five minutes", 5 * time.Minute, 1},
		{"five minutes and one second", 5*time.Minute + time.Second, 2},
		{"one second", time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []model.ActivityEvent{
				event("e2", "T1", model.ActionUpdated, at(tt.delta)),
				event("e1", "T1", model.ActionUpdated, at(0)),
			}
			assert.Len(t, Group(events), tt.want)
		})
	}
}

func TestGroup_DistinctTasksNeverMerge(t *testing.T) {
	events := []model.ActivityEvent{
		event("e3", "T3", model.ActionCreated, at(2*time.Second)),
		event("e2", "T2", model.ActionCreated, at(time.Second)),
		event("e1", "T1", model.ActionCreated, at(0)),
	}

	got := Group(events)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"T3", "T2", "T1"}, taskIDs(got))
	for _, e := range got {
		assert.Equal(t, model.ActionCreated, e.Action)
	}
}

func TestGroup_CapsAtTen(t *testing.T) {
	var events []model.ActivityEvent
	for i := 14; i >= 0; i-- {
		events = append(events, event(
			fmt.Sprintf("e%d", i),
			fmt.Sprintf("T%d", i),
			model.ActionUpdated,
			at(time.Duration(i)*time.Minute),
		))
	}

	got := Group(events)

	require.Len(t, got, model.MaxRecentActivities)
	assert.Equal(t, at(14*time.Minute), got[0].OccurredAt)
	assert.Equal(t, at(5*time.Minute), got[9].OccurredAt)
}

func TestGroup_SortedDescending(t *testing.T) {
	events := []model.ActivityEvent{
		event("e1", "T1", model.ActionCreated, at(0)),
		event("e3", "T3", model.ActionCreated, at(30*time.Minute)),
		event("e2", "T2", model.ActionCreated, at(15*time.Minute)),
	}

	got := Group(events)

	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].OccurredAt.After(got[i-1].OccurredAt))
	}
}

func TestGroup_Idempotent(t *testing.T) {
	var events []model.ActivityEvent
	for i := 20; i >= 0; i-- {
		events = append(events, event(
			fmt.Sprintf("e%d", i),
			fmt.Sprintf("T%d", i%4),
			model.ActionUpdated,
			at(time.Duration(i)*90*time.Second),
		))
	}

	once := Group(events)
	twice := Group(once)

	assert.Equal(t, once, twice)
}

func TestGroup_RepeatedBurstsInSameBucket(t *testing.T) {
	events := []model.ActivityEvent{
		event("e1", "T1", model.ActionUpdated, at(0)),
		event("e2", "T1", model.ActionUpdated, at(6*time.Minute)),
		event("e3", "T1", model.ActionUpdated, at(30*time.Second)),
		event("e4", "T1", model.ActionUpdated, at(6*time.Minute+30*time.Second)),
	}

	got := Group(events)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"e4", "e2", "e3", "e1"}, eventIDs(got))
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil))
}

func TestBurstKey(t *testing.T) {
	k1 := burstKey("T1", at(time.Minute))
	k2 := burstKey("T1", at(4*time.Minute))
	k3 := burstKey("T1", at(6*time.Minute))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	retained := map[string]model.ActivityEvent{}
	assert.Equal(t, k1, uniqueKey(retained, k1))
	retained[k1] = event("e1", "T1", model.ActionUpdated, at(time.Minute))
	assert.Equal(t, k1+"#2", uniqueKey(retained, k1))
	retained[k1+"#2"] = event("e2", "T1", model.ActionUpdated, at(2*time.Minute))
	assert.Equal(t, k1+"#3", uniqueKey(retained, k1))
}

func taskIDs(events []model.ActivityEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.TaskID
	}
	return ids
}

func eventIDs(events []model.ActivityEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
