// Package querycache holds the latest result of each named query together
// with a staleness flag. Values are replaced whole and never patched, so a
// reader always sees either the previous or the next complete snapshot.
package querycache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key names a query. Keys are slash-separated so related queries form a
// group addressable by prefix (e.g., "notifications/").
type Key string

// Entry is the cached state of one query.
type Entry struct {
	Value     any
	Stale     bool
	UpdatedAt time.Time
}

// HasValue reports whether the query has completed at least once.
func (e Entry) HasValue() bool {
	return !e.UpdatedAt.IsZero()
}

// DefaultSize bounds the number of distinct queries kept.
const DefaultSize = 128

// Cache is safe for concurrent use.
type Cache struct {
	// mu serializes writers so Invalidate's read-modify-write cannot
	// resurrect a value replaced concurrently.
	mu      sync.Mutex
	entries *lru.Cache[Key, Entry]
	now     func() time.Time
}

// New creates a cache holding at most size queries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[Key, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &Cache{entries: entries, now: time.Now}, nil
}

// Get returns the entry for key and whether one exists.
func (c *Cache) Get(key Key) (Entry, bool) {
	return c.entries.Get(key)
}

// Replace stores value as the fresh result of key.
func (c *Cache) Replace(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, Entry{Value: value, UpdatedAt: c.now()})
}

// Invalidate marks key stale, keeping its last value readable. Unknown
// keys are recorded as stale so the next read knows to compute them.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, _ := c.entries.Peek(key)
	entry.Stale = true
	c.entries.Add(key, entry)
}

// InvalidateGroup marks every key starting with prefix stale and returns
// the affected keys.
func (c *Cache) InvalidateGroup(prefix string) []Key {
	var affected []Key
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(string(key), prefix) {
			c.Invalidate(key)
			affected = append(affected, key)
		}
	}
	return affected
}

// IsStale reports whether key needs recomputation: it is marked stale or
// has never been computed.
func (c *Cache) IsStale(key Key) bool {
	entry, ok := c.entries.Peek(key)
	return !ok || entry.Stale || !entry.HasValue()
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
