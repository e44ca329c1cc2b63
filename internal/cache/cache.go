// Package cache provides a bounded, TTL-based store for processed article
// content, keyed by (sourceID, url) so unrelated feeds of the same source
// type do not collide. One instance is shared per source type.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

// Defaults applied when a config value is zero or negative.
const (
	DefaultMaxEntries = 500
	DefaultTTL        = time.Hour
)

type entry struct {
	key      string
	content  string
	storedAt time.Time
}

// ContentCache is an in-memory bounded TTL cache. The zero value is not
// usable; construct with New.
type ContentCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	clock      feed.Clock

	entries map[string]*list.Element
	order   *list.List // oldest insertion at front
}

// Option customizes a ContentCache.
type Option func(*ContentCache)

// WithClock injects a clock, used by tests to control TTL expiry.
func WithClock(clock feed.Clock) Option {
	return func(c *ContentCache) { c.clock = clock }
}

// New builds a ContentCache bounded by maxEntries and ttl.
func New(maxEntries int, ttl time.Duration, opts ...Option) *ContentCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ContentCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      systemClock{},
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached content for (sourceID, url). Entries older than the
// TTL are treated as misses and removed on access, so they no longer count
// toward the capacity bound.
func (c *ContentCache) Get(sourceID, url string) (string, bool) {
	key := compositeKey(sourceID, url)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	ent := el.Value.(*entry)
	if c.clock.Now().Sub(ent.storedAt) >= c.ttl {
		c.removeLocked(el)
		return "", false
	}
	return ent.content, true
}

// Set stores content for (sourceID, url). An existing entry is overwritten
// wholesale and counts as a fresh insertion for eviction purposes. Once the
// capacity bound is exceeded the oldest-inserted entry is evicted.
func (c *ContentCache) Set(sourceID, url, content string) {
	key := compositeKey(sourceID, url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	el := c.order.PushBack(&entry{key: key, content: content, storedAt: c.clock.Now()})
	c.entries[key] = el

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
}

// Len reports the number of live entries, expired ones included until they
// are touched.
func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ContentCache) removeLocked(el *list.Element) {
	ent := el.Value.(*entry)
	delete(c.entries, ent.key)
	c.order.Remove(el)
}

func compositeKey(sourceID, url string) string {
	return sourceID + "\x00" + url
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
