// Package cache implements the read-through cache in front of the upstream
// client for list and metadata requests. Entries live until their TTL or
// until LRU capacity eviction, whichever comes first, and concurrent misses
// on the same key collapse into a single upstream fetch.
package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is safe for concurrent use. Plain hits never serialize behind the
// single-flight group; only the per-key miss path does.
type Cache struct {
	entries *expirable.LRU[string, entry]
	group   singleflight.Group
	ttl     time.Duration
}

// New creates a cache holding at most capacity entries, each valid for ttl.
func New(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		entries: expirable.NewLRU[string, entry](capacity, nil, ttl),
		ttl:     ttl,
	}
}

// Key builds a canonical cache key from an endpoint identity and its
// normalized query parameters. url.Values.Encode sorts keys, so parameter
// order never produces distinct fingerprints.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// GetOrLoad returns the live cached value for key, or runs loader exactly
// once across all concurrent callers and caches its result. A loader failure
// propagates to every waiter and caches nothing.
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited on
		// the flight slot.
		if v, ok := c.get(key); ok {
			return v, nil
		}

		// The fetch outlives the initiating request: its result is
		// shared with every waiter on this key.
		v, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, entry{value: v, expiresAt: time.Now().Add(c.ttl)})
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// get returns a live entry and refreshes its recency marker. Entries at or
// past their expiry are removed and reported as misses.
func (c *Cache) get(key string) (any, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !time.Now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	c.entries.Remove(key)
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	return c.entries.Len()
}
