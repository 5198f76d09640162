package store

import (
	"context"
	"fmt"
	"sync"
)

// Table names a table that emits change notifications.
type Table string

const (
	TableTasks      Table = "tasks"
	TableActivities Table = "task_activities"
)

// EventMask selects which kinds of change a subscription receives.
type EventMask uint8

const (
	EventInsert EventMask = 1 << iota
	EventUpdate
	EventDelete

	EventAll = EventInsert | EventUpdate | EventDelete
)

// String renders a single event type.
func (m EventMask) String() string {
	switch m {
	case EventInsert:
		return "insert"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	case EventAll:
		return "all"
	}
	return fmt.Sprintf("mask(%d)", uint8(m))
}

// ChangeEvent is one committed row change.
type ChangeEvent struct {
	Table Table
	Type  EventMask
	RowID string
}

// subscriptionBuffer bounds how far a subscriber may lag before events
// are dropped.
const subscriptionBuffer = 64

// Subscription delivers change events for a set of tables. The channel is
// closed when the subscription is released or the store shuts down.
type Subscription struct {
	id     uint64
	tables map[Table]bool
	mask   EventMask
	ch     chan ChangeEvent
}

// Events returns the delivery channel.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.ch
}

func (s *Subscription) matches(ev ChangeEvent) bool {
	return s.tables[ev.Table] && s.mask&ev.Type != 0
}

// broker fans committed changes out to subscriptions.
type broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[uint64]*Subscription)}
}

func (b *broker) subscribe(ctx context.Context, tables []Table, mask EventMask) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("subscribing: no tables given")
	}
	if mask == 0 {
		return nil, fmt.Errorf("subscribing: empty event mask")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		tables: make(map[Table]bool, len(tables)),
		mask:   mask,
		ch:     make(chan ChangeEvent, subscriptionBuffer),
	}
	for _, t := range tables {
		sub.tables[t] = true
	}
	b.subs[sub.id] = sub
	return sub, nil
}

// unsubscribe is safe to call more than once and with nil.
func (b *broker) unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// publish delivers ev without blocking; a full subscriber misses it.
func (b *broker) publish(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// close ends every subscription. Later subscribes fail with ErrClosed.
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
