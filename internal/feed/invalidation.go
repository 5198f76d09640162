package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/taskfeed/internal/store"
)

// QuerySet is a set of feed queries, used both for staleness signals and
// for recompute requests.
type QuerySet uint8

const (
	QueryDueSoon QuerySet = 1 << iota
	QueryActivity

	QueryAll = QueryDueSoon | QueryActivity
)

// Has reports whether q contains every query in other.
func (q QuerySet) Has(other QuerySet) bool {
	return q&other == other
}

func (q QuerySet) String() string {
	switch q {
	case 0:
		return "none"
	case QueryDueSoon:
		return "due-soon"
	case QueryActivity:
		return "activity"
	case QueryAll:
		return "due-soon+activity"
	}
	return fmt.Sprintf("queries(%d)", uint8(q))
}

// SubscriptionState is the controller's connection state.
type SubscriptionState int

const (
	Unsubscribed SubscriptionState = iota
	Subscribed
)

func (s SubscriptionState) String() string {
	if s == Subscribed {
		return "SUBSCRIBED"
	}
	return "UNSUBSCRIBED"
}

// watchedTables are the tables whose changes invalidate the feed.
var watchedTables = []store.Table{store.TableTasks, store.TableActivities}

// Classify maps a change to the queries it makes stale: any task change
// affects both lists, an audit-log change only affects activity.
func Classify(ev store.ChangeEvent) QuerySet {
	switch ev.Table {
	case store.TableTasks:
		return QueryAll
	case store.TableActivities:
		return QueryActivity
	}
	return 0
}

// Controller turns store change notifications into staleness signals on
// an outbound channel. Signals coalesce while the consumer is busy.
type Controller struct {
	source  store.Subscriber
	signals chan QuerySet
	logger  *slog.Logger

	mu    sync.Mutex
	state SubscriptionState
	sub   *store.Subscription
	done  chan struct{}
}

// NewController creates an unsubscribed controller.
func NewController(source store.Subscriber, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = discardLogger()
	}
	return &Controller{
		source:  source,
		signals: make(chan QuerySet, 1),
		logger:  logger,
	}
}

// Signals delivers staleness signals. The channel is never closed.
func (c *Controller) Signals() <-chan QuerySet {
	return c.signals
}

// State returns the current subscription state.
func (c *Controller) State() SubscriptionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe opens the change subscription. It is a no-op when already
// subscribed; on failure the controller stays unsubscribed.
func (c *Controller) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Subscribed {
		return nil
	}

	sub, err := c.source.Subscribe(ctx, watchedTables, store.EventAll)
	if err != nil {
		return fmt.Errorf("subscribing to changes: %w", err)
	}

	done := make(chan struct{})
	c.sub = sub
	c.done = done
	c.state = Subscribed
	go c.forward(sub, done)

	c.logger.Debug("change feed subscribed")
	return nil
}

// Unsubscribe releases the subscription. Safe to call in any state and
// more than once.
func (c *Controller) Unsubscribe() {
	c.mu.Lock()
	sub, done := c.sub, c.done
	c.sub, c.done = nil, nil
	wasSubscribed := c.state == Subscribed
	c.state = Unsubscribed
	c.mu.Unlock()

	if sub != nil {
		c.source.Unsubscribe(sub)
	}
	if done != nil {
		<-done
	}
	if wasSubscribed {
		c.logger.Debug("change feed unsubscribed")
	}
}

// forward relays events until the subscription channel closes, either
// through Unsubscribe or because the store dropped it.
func (c *Controller) forward(sub *store.Subscription, done chan struct{}) {
	defer close(done)

	for ev := range sub.Events() {
		if q := Classify(ev); q != 0 {
			c.emit(q)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == sub {
		c.sub, c.done = nil, nil
		c.state = Unsubscribed
		c.logger.Warn("change feed dropped, relying on periodic refresh")
	}
}

// emit sends q, merging it with any signal the consumer has not taken yet.
func (c *Controller) emit(q QuerySet) {
	for {
		select {
		case c.signals <- q:
			return
		default:
		}
		select {
		case pending := <-c.signals:
			q |= pending
		default:
		}
	}
}
