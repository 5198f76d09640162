package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/model"
)

type fakeEngine struct {
	startErr  error
	started   int
	stopped   int
	refetched int
	updates   chan model.NotificationFeed
	err       error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{updates: make(chan model.NotificationFeed, 1)}
}

func (f *fakeEngine) Start(context.Context) error {
	f.started++
	return f.startErr
}

func (f *fakeEngine) Stop() { f.stopped++ }
func (f *fakeEngine) Refetch() { f.refetched++ }
func (f *fakeEngine) Updates() <-chan model.NotificationFeed { return f.updates }
func (f *fakeEngine) Err() error { return f.err }
func (f *fakeEngine) IsFetching() bool { return false }
func (f *fakeEngine) SubscriptionState() feed.SubscriptionState { return feed.Subscribed }

func TestPoller_StartDeliversFirstFeed(t *testing.T) {
	engine := newFakeEngine()
	engine.err = errors.New("audit log unavailable")
	engine.updates <- model.NotificationFeed{TotalCount: 2}
	p := New(engine)

	cmd := p.Start()
	require.NotNil(t, cmd)

	msg, ok := cmd().(FeedMsg)
	require.True(t, ok)
	assert.Equal(t, 2, msg.Feed.TotalCount)
	assert.EqualError(t, msg.Err, "audit log unavailable")
	assert.True(t, msg.Subscribed)
	assert.Equal(t, 1, engine.started)

	assert.Nil(t, p.Start(), "already running")
}

func TestPoller_StartError(t *testing.T) {
	engine := newFakeEngine()
	engine.startErr = feed.ErrNoPrincipal
	p := New(engine)

	msg, ok := p.Start()().(StartErrMsg)
	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, feed.ErrNoPrincipal)

	p.Stop()
	assert.Zero(t, engine.stopped, "never started")
}

func TestPoller_StopAndRefresh(t *testing.T) {
	engine := newFakeEngine()
	engine.updates <- model.NotificationFeed{}
	p := New(engine)
	p.Start()()

	p.RefreshAll()
	assert.Equal(t, 1, engine.refetched)

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, engine.stopped)
}

func TestPoller_WaitForNextResultOnClosedChannel(t *testing.T) {
	engine := newFakeEngine()
	close(engine.updates)

	assert.Nil(t, New(engine).WaitForNextResult()())
}

func TestPoller_WaitReturnsAfterStop(t *testing.T) {
	engine := newFakeEngine()
	engine.updates <- model.NotificationFeed{}
	p := New(engine)
	p.Start()()

	done := make(chan tea.Msg, 1)
	go func() { done <- p.WaitForNextResult()() }()

	p.Stop()

	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after Stop")
	}
}
