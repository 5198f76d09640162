// Package sync bridges the feed engine to the Bubble Tea runtime.
package sync

import (
	"context"
	gosync "sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/model"
)

// FeedMsg is a tea.Msg carrying a freshly published feed.
type FeedMsg struct {
	Feed model.NotificationFeed

	// Err is the engine's current error, if any. The feed is still well
	// formed.
	Err error

	// Subscribed reports whether change notifications are flowing.
	Subscribed bool
}

// StartErrMsg is sent when the engine refuses to start.
type StartErrMsg struct {
	Err error
}

// Engine is the part of feed.Engine the poller drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Refetch()
	Updates() <-chan model.NotificationFeed
	Err() error
	IsFetching() bool
	SubscriptionState() feed.SubscriptionState
}

// Poller owns the engine's lifecycle on behalf of the UI.
type Poller struct {
	engine  Engine
	mu      gosync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new Poller for engine.
func New(engine Engine) *Poller {
	return &Poller{engine: engine}
}

// Start returns a tea.Cmd that starts the engine and waits for its first
// feed.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.ctx = ctx
	p.cancel = cancel
	p.mu.Unlock()

	return func() tea.Msg {
		if err := p.engine.Start(ctx); err != nil {
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			cancel()
			return StartErrMsg{Err: err}
		}
		return p.waitForResult()()
	}
}

// Stop halts the engine.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	p.engine.Stop()
	cancel()
}

// RefreshAll asks the engine for an immediate recompute.
func (p *Poller) RefreshAll() {
	p.engine.Refetch()
}

// IsFetching reports whether the engine is computing a feed.
func (p *Poller) IsFetching() bool {
	return p.engine.IsFetching()
}

// waitForResult returns a tea.Cmd that waits for the next published feed.
// The command returns nil once the poller is stopped.
func (p *Poller) waitForResult() tea.Cmd {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	return func() tea.Msg {
		if ctx == nil {
			return nil
		}
		var f model.NotificationFeed
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-p.engine.Updates():
			if !ok {
				return nil
			}
			f = next
		}
		return FeedMsg{
			Feed:       f,
			Err:        p.engine.Err(),
			Subscribed: p.engine.SubscriptionState() == feed.Subscribed,
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next feed. Call
// it after handling each FeedMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
