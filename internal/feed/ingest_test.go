package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
	"github.com/nhle/taskfeed/tests/testutil"
)

// brokenAudit fails every audit-log read.
type brokenAudit struct{}

func (brokenAudit) QueryActivities(context.Context, store.ActivityFilter) ([]model.ActivityEvent, error) {
	return nil, errors.New("no such table: task_activities")
}

func TestIngest_ReadsAuditLog(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedTasks(t, s, model.Task{ID: "T1", Title: "Report", Assignee: "alice"})

	now := base
	testutil.SeedActivities(t, s,
		event("old", "T1", model.ActionCreated, now.Add(-2*time.Hour)),
		event("e1", "T1", model.ActionStatusChanged, now.Add(-50*time.Minute)),
		event("e2", "T1", model.ActionAssigned, now.Add(-10*time.Minute)),
	)

	got, err := NewIngestor(s, s, nil).Ingest(context.Background(), now)

	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.NoError(t, got.AuditErr)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "e2", got.Events[0].ID, "newest first")
	assert.Equal(t, "e1", got.Events[1].ID)
	require.NotNil(t, got.Events[0].SourceTask)
	assert.Equal(t, "Report", got.Events[0].SourceTask.Title)
}

func TestIngest_OrphanActivityHasNoSourceTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedActivities(t, s,
		event("e1", "gone", model.ActionDeleted, base.Add(-time.Minute)),
	)

	got, err := NewIngestor(s, s, nil).Ingest(context.Background(), base)

	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Nil(t, got.Events[0].SourceTask)
	assert.Equal(t, "Task gone", got.Events[0].TaskTitle)
}

func TestIngest_FallsBackToTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	created := base.Add(-30 * time.Minute)
	updated := base.Add(-5 * time.Minute)
	stale := base.Add(-3 * time.Hour)
	testutil.SeedTasks(t, s,
		model.Task{ID: "T1", Title: "Created", Assignee: "bob", CreatedAt: &created},
		model.Task{
			ID: "T2", Title: "Edited", Status: model.StatusReview,
			CreatedAt: &stale, UpdatedAt: &updated,
		},
		model.Task{ID: "T3", Title: "Untouched", CreatedAt: &stale, UpdatedAt: &stale},
	)

	got, err := NewIngestor(brokenAudit{}, s, nil).Ingest(context.Background(), base)

	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.ErrorIs(t, got.AuditErr, ErrAuditLogUnavailable)
	require.Len(t, got.Events, 2)

	edited := got.Events[0]
	assert.Equal(t, "T2", edited.TaskID)
	assert.Equal(t, model.ActionUpdated, edited.Action)
	assert.Equal(t, updated, edited.OccurredAt)
	assert.Equal(t, model.UnknownActor, edited.ActorName)
	require.NotNil(t, edited.NewValue)
	assert.Equal(t, model.StatusReview, *edited.NewValue)
	require.NotNil(t, edited.SourceTask)

	fresh := got.Events[1]
	assert.Equal(t, "T1", fresh.TaskID)
	assert.Equal(t, model.ActionCreated, fresh.Action)
	assert.Equal(t, created, fresh.OccurredAt)
	assert.Equal(t, "bob", fresh.ActorName)
	assert.Nil(t, fresh.NewValue)
}

func TestIngest_FallbackIDsAreStable(t *testing.T) {
	s := testutil.NewTestStore(t)
	created := base.Add(-time.Minute)
	testutil.SeedTasks(t, s, model.Task{ID: "T1", Title: "Report", CreatedAt: &created})

	in := NewIngestor(brokenAudit{}, s, nil)
	first, err := in.Ingest(context.Background(), base)
	require.NoError(t, err)
	second, err := in.Ingest(context.Background(), base)
	require.NoError(t, err)

	require.Len(t, first.Events, 1)
	assert.Equal(t, first.Events[0].ID, second.Events[0].ID)
}

func TestIngest_FallbackFailure(t *testing.T) {
	in := NewIngestor(brokenAudit{}, failingTasks{err: errors.New("locked")}, nil)

	got, err := in.Ingest(context.Background(), base)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesizing activity")
	assert.ErrorIs(t, got.AuditErr, ErrAuditLogUnavailable)
	assert.Empty(t, got.Events)
}

func TestIngest_CancelledContextSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(brokenAudit{}, failingTasks{}, nil).Ingest(ctx, base)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_FifteenRowsGroupToTen(t *testing.T) {
	s := testutil.NewTestStore(t)
	for i := 0; i < 15; i++ {
		testutil.SeedActivities(t, s, event(
			fmt.Sprintf("e%02d", i),
			fmt.Sprintf("T%02d", i),
			model.ActionUpdated,
			base.Add(-time.Duration(i+1)*time.Minute),
		))
	}

	ingested, err := NewIngestor(s, s, nil).Ingest(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, ingested.Events, 15)

	got := Group(ingested.Events)

	require.Len(t, got, 10)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("e%02d", i), e.ID)
	}
}
