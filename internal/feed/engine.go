package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/querycache"
	"github.com/nhle/taskfeed/internal/store"
)

// Query cache keys owned by the engine.
const (
	KeyGroup    = "notifications/"
	KeyDueSoon  = querycache.Key("notifications/due-soon")
	KeyActivity = querycache.Key("notifications/activity")
	KeyFeed     = querycache.Key("notifications/feed")
)

// ErrNoPrincipal is returned by Start when no user identity is configured.
var ErrNoPrincipal = errors.New("no principal configured")

// queryTimeout bounds a single store query.
const queryTimeout = 30 * time.Second

// Source is everything the engine reads from the store.
type Source interface {
	store.TaskReader
	store.ActivityReader
	store.Subscriber
}

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	DueSoonInterval  time.Duration
	ActivityInterval time.Duration

	// Location sets day boundaries for due dates.
	Location *time.Location

	// Principal is the user the engine runs for. Start refuses to run
	// without one.
	Principal string

	Now    func() time.Time
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DueSoonInterval <= 0 {
		o.DueSoonInterval = model.DefaultDueSoonInterval
	}
	if o.ActivityInterval <= 0 {
		o.ActivityInterval = model.DefaultActivityInterval
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return o
}

// Engine keeps the notification feed fresh. It recomputes on two timers,
// on change notifications, and on Refetch, and publishes each complete
// snapshot to the query cache and the Updates channel.
type Engine struct {
	opts       Options
	scanner    *Scanner
	ingestor   *Ingestor
	controller *Controller
	cache      *querycache.Cache
	logger     *slog.Logger

	triggerCh chan QuerySet
	updatesCh chan model.NotificationFeed

	fetching  atomic.Int32
	published atomic.Bool

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	loopWG      sync.WaitGroup
	dueErr      error
	activityErr error

	// cycleMu serializes recomputations so snapshots are published in
	// the order they were computed.
	cycleMu sync.Mutex
}

// New creates an Engine over src, publishing into cache.
func New(src Source, cache *querycache.Cache, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:       opts,
		scanner:    NewScanner(src, opts.Location),
		ingestor:   NewIngestor(src, src, opts.Logger),
		controller: NewController(src, opts.Logger),
		cache:      cache,
		logger:     opts.Logger,
		triggerCh:  make(chan QuerySet, 1),
		updatesCh:  make(chan model.NotificationFeed, 1),
	}
}

// Start subscribes to changes, computes the first feed and launches the
// refresh loop. A failed subscription is logged; the timers still run.
func (e *Engine) Start(ctx context.Context) error {
	if e.opts.Principal == "" {
		return ErrNoPrincipal
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()

	e.cache.InvalidateGroup(KeyGroup)
	e.ensureSubscribed(loopCtx)

	e.loopWG.Add(1)
	go e.loop(loopCtx)

	e.logger.Info("feed engine started",
		"principal", e.opts.Principal,
		"due_soon_interval", e.opts.DueSoonInterval,
		"activity_interval", e.opts.ActivityInterval,
	)
	return nil
}

// Stop cancels the loop, drops the subscription and waits for the loop to
// exit. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.controller.Unsubscribe()
	e.loopWG.Wait()
	e.logger.Info("feed engine stopped")
}

// Refetch requests an immediate recompute of everything. It never blocks;
// requests made while one is pending are merged.
func (e *Engine) Refetch() {
	q := QueryAll
	for {
		select {
		case e.triggerCh <- q:
			return
		default:
		}
		select {
		case pending := <-e.triggerCh:
			q |= pending
		default:
		}
	}
}

// Feed returns the latest published snapshot, or an empty feed before the
// first one.
func (e *Engine) Feed() model.NotificationFeed {
	entry, ok := e.cache.Get(KeyFeed)
	if !ok {
		return model.NotificationFeed{}
	}
	f, _ := entry.Value.(model.NotificationFeed)
	return f
}

// Updates delivers published snapshots. Only the newest unread snapshot is
// kept; a slow reader skips intermediate ones.
func (e *Engine) Updates() <-chan model.NotificationFeed {
	return e.updatesCh
}

// IsLoading reports a fetch in progress with no feed published yet.
func (e *Engine) IsLoading() bool {
	return e.IsFetching() && !e.published.Load()
}

// IsFetching reports whether a recompute is in progress.
func (e *Engine) IsFetching() bool {
	return e.fetching.Load() > 0
}

// Err joins the errors of the latest run of each query, or nil. A query
// keeps its error until it next succeeds.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.dueErr, e.activityErr)
}

// SubscriptionState reports the change-feed state.
func (e *Engine) SubscriptionState() SubscriptionState {
	return e.controller.State()
}

// loop is the single consumer of timers, change signals and refetches.
func (e *Engine) loop(ctx context.Context) {
	defer e.loopWG.Done()

	dueTicker := time.NewTicker(e.opts.DueSoonInterval)
	defer dueTicker.Stop()
	activityTicker := time.NewTicker(e.opts.ActivityInterval)
	defer activityTicker.Stop()

	e.runCycle(ctx, QueryAll)

	for {
		select {
		case <-ctx.Done():
			return
		case <-dueTicker.C:
			e.runCycle(ctx, QueryDueSoon)
		case <-activityTicker.C:
			e.ensureSubscribed(ctx)
			e.runCycle(ctx, QueryActivity)
		case q := <-e.controller.Signals():
			e.markStale(q)
			e.runCycle(ctx, q)
		case q := <-e.triggerCh:
			e.runCycle(ctx, q)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, q QuerySet) {
	if _, err := e.Recompute(ctx, q); err != nil && ctx.Err() == nil {
		e.logger.Warn("feed recompute failed", "queries", q.String(), "error", err)
	}
}

// ensureSubscribed retries the change subscription when it is down.
func (e *Engine) ensureSubscribed(ctx context.Context) {
	if e.controller.State() == Subscribed {
		return
	}
	if err := e.controller.Subscribe(ctx); err != nil && ctx.Err() == nil {
		e.logger.Warn("change feed unavailable, using periodic refresh only", "error", err)
	}
}

func (e *Engine) markStale(q QuerySet) {
	if q.Has(QueryDueSoon) {
		e.cache.Invalidate(KeyDueSoon)
	}
	if q.Has(QueryActivity) {
		e.cache.Invalidate(KeyActivity)
	}
}

// Recompute runs the requested queries concurrently, replaces their cache
// entries, assembles a new feed from the latest results of both, and
// publishes it. Queries not requested but never computed run as well.
//
// The returned feed is always well formed. The error reports a due-soon
// failure (published as an empty list) or a failed activity fallback.
// Results finishing after ctx is cancelled are discarded.
func (e *Engine) Recompute(ctx context.Context, q QuerySet) (model.NotificationFeed, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	if e.cache.IsStale(KeyDueSoon) {
		q |= QueryDueSoon
	}
	if e.cache.IsStale(KeyActivity) {
		q |= QueryActivity
	}

	e.fetching.Add(1)
	defer e.fetching.Add(-1)

	now := e.opts.Now()

	var (
		dueSoon     []model.Task
		dueErr      error
		activity    []model.ActivityEvent
		activityErr error
	)

	var wg conc.WaitGroup
	if q.Has(QueryDueSoon) {
		wg.Go(func() {
			qctx, cancel := context.WithTimeout(ctx, queryTimeout)
			defer cancel()
			dueSoon, dueErr = e.scanner.Scan(qctx, now)
		})
	}
	if q.Has(QueryActivity) {
		wg.Go(func() {
			qctx, cancel := context.WithTimeout(ctx, queryTimeout)
			defer cancel()
			activity, activityErr = e.activity(qctx, now)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return e.Feed(), err
	}

	// A failed query publishes an empty list but stays stale, so the next
	// cycle of either kind retries it.
	if q.Has(QueryDueSoon) {
		if dueErr != nil {
			dueSoon = nil
		}
		e.cache.Replace(KeyDueSoon, dueSoon)
		if dueErr != nil {
			e.cache.Invalidate(KeyDueSoon)
		}
	} else {
		dueSoon = cachedValue[[]model.Task](e.cache, KeyDueSoon)
	}

	if q.Has(QueryActivity) {
		if activityErr != nil {
			activity = nil
		}
		e.cache.Replace(KeyActivity, activity)
		if activityErr != nil {
			e.cache.Invalidate(KeyActivity)
		}
	} else {
		activity = cachedValue[[]model.ActivityEvent](e.cache, KeyActivity)
	}

	snapshot := Assemble(dueSoon, activity, now)

	e.mu.Lock()
	if q.Has(QueryDueSoon) {
		e.dueErr = dueErr
	}
	if q.Has(QueryActivity) {
		e.activityErr = activityErr
	}
	cycleErr := errors.Join(e.dueErr, e.activityErr)
	e.mu.Unlock()

	e.publish(snapshot)

	e.logger.Debug("feed recomputed",
		"queries", q.String(),
		"due_soon", len(snapshot.DueSoonTasks),
		"activities", len(snapshot.RecentActivities),
		"error", cycleErr,
	)
	return snapshot, cycleErr
}

// activity runs the ingest and grouping half of the pipeline.
func (e *Engine) activity(ctx context.Context, now time.Time) ([]model.ActivityEvent, error) {
	ingestion, err := e.ingestor.Ingest(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("reading recent activity: %w", err)
	}
	return Group(ingestion.Events), nil
}

// publish replaces the feed snapshot and offers it to Updates, dropping an
// unread older snapshot.
func (e *Engine) publish(f model.NotificationFeed) {
	e.cache.Replace(KeyFeed, f)
	e.published.Store(true)

	for {
		select {
		case e.updatesCh <- f:
			return
		default:
		}
		select {
		case <-e.updatesCh:
		default:
		}
	}
}

func cachedValue[T any](c *querycache.Cache, key querycache.Key) T {
	var zero T
	entry, ok := c.Get(key)
	if !ok {
		return zero
	}
	v, ok := entry.Value.(T)
	if !ok {
		return zero
	}
	return v
}
