package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
	"github.com/nhle/taskfeed/tests/testutil"
)

const signalTimeout = 2 * time.Second

func receiveSignal(t *testing.T, c *Controller) QuerySet {
	t.Helper()

	select {
	case q := <-c.Signals():
		return q
	case <-time.After(signalTimeout):
		t.Fatal("timed out waiting for signal")
		return 0
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   store.ChangeEvent
		want QuerySet
	}{
		{"task insert", store.ChangeEvent{Table: store.TableTasks, Type: store.EventInsert}, QueryAll},
		{"task delete", store.ChangeEvent{Table: store.TableTasks, Type: store.EventDelete}, QueryAll},
		{"activity insert", store.ChangeEvent{Table: store.TableActivities, Type: store.EventInsert}, QueryActivity},
		{"unrelated", store.ChangeEvent{Table: "projects", Type: store.EventInsert}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ev))
		})
	}
}

func TestQuerySet(t *testing.T) {
	assert.True(t, QueryAll.Has(QueryDueSoon))
	assert.True(t, QueryAll.Has(QueryActivity))
	assert.False(t, QueryActivity.Has(QueryDueSoon))
	assert.Equal(t, "due-soon+activity", QueryAll.String())
	assert.Equal(t, "none", QuerySet(0).String())
}

func TestController_SignalsChanges(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	require.NoError(t, c.Subscribe(context.Background()))
	defer c.Unsubscribe()

	assert.Equal(t, Subscribed, c.State())

	testutil.SeedTasks(t, s, model.Task{ID: "T1", Title: "Report"})
	assert.Equal(t, QueryAll, receiveSignal(t, c))

	testutil.SeedActivities(t, s, event("e1", "T1", model.ActionCreated, base))
	assert.Equal(t, QueryActivity, receiveSignal(t, c))
}

func TestController_CoalescesPendingSignals(t *testing.T) {
	c := NewController(nil, nil)

	c.emit(QueryActivity)
	c.emit(QueryDueSoon)

	assert.Equal(t, QueryAll, receiveSignal(t, c))
	select {
	case q := <-c.Signals():
		t.Fatalf("unexpected extra signal %v", q)
	default:
	}
}

func TestController_SubscribeTwiceIsNoop(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)

	require.NoError(t, c.Subscribe(context.Background()))
	first := c.sub
	require.NoError(t, c.Subscribe(context.Background()))
	assert.Same(t, first, c.sub)

	c.Unsubscribe()
}

func TestController_UnsubscribeIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)

	c.Unsubscribe()
	require.NoError(t, c.Subscribe(context.Background()))
	c.Unsubscribe()
	c.Unsubscribe()

	assert.Equal(t, Unsubscribed, c.State())

	// No signal after release.
	testutil.SeedTasks(t, s, model.Task{ID: "T1", Title: "Report"})
	select {
	case q := <-c.Signals():
		t.Fatalf("unexpected signal %v", q)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestController_DetectsDroppedSubscription(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	c := NewController(s, nil)
	require.NoError(t, c.Subscribe(context.Background()))

	require.NoError(t, s.Close())

	assert.Eventually(t, func() bool {
		return c.State() == Unsubscribed
	}, signalTimeout, 10*time.Millisecond)

	err = c.Subscribe(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.Equal(t, Unsubscribed, c.State())
}
