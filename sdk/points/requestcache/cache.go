// Package requestcache wraps parameterized fetch operations with a
// time-bounded response cache and in-flight request deduplication. It keeps
// repeated list views (same filter params, multiple widgets) from hammering
// the API: concurrent callers with identical parameters share one request,
// and settled results are served from memory for the TTL window.
package requestcache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached response stays valid.
const DefaultTTL = 5 * time.Minute

// entry is one cached response with its storage time. Expiry is passive:
// entries are checked on lookup, never evicted in the background.
type entry struct {
	data     any
	storedAt time.Time
}

// Cache is a TTL response cache with request deduplication. The zero value
// is not usable; construct with New.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a cache with the given TTL. A non-positive ttl falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Key computes the cache key for a parameter set: nil-valued entries are
// dropped, the rest are sorted by name and serialized, so any two maps with
// the same effective parameters produce the same key regardless of
// insertion order.
func Key(params map[string]any) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		kj, _ := json.Marshal(k)
		vj, _ := json.Marshal(params[k])
		b.Write(kj)
		b.WriteByte(':')
		b.Write(vj)
	}
	b.WriteByte('}')
	return b.String()
}

// Do returns the cached result for params if a valid entry exists, joins an
// in-flight fetch for the same key if one is outstanding, or invokes fetch
// and caches its result. Failed fetches are not cached; every waiter on a
// shared call receives the same error.
func Do[T any](ctx context.Context, c *Cache, params map[string]any, fetch func(ctx context.Context) (T, error)) (T, error) {
	key := Key(params)

	if v, ok := c.lookup(key); ok {
		// Type mismatch across callers of the same key would be a
		// programming error; surface it as a cache miss.
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a racing caller may have populated
		// the entry between our lookup and joining the group. A stored
		// value of the wrong type stays a miss here too.
		if v, ok := c.lookup(key); ok {
			if _, ok := v.(T); ok {
				return v, nil
			}
		}
		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	// Joined a flight for the same key started with a different result
	// type; fetch directly and overwrite the entry.
	result, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store(key, result)
	return result, nil
}

// Invalidate removes the cached entry for one parameter set.
func (c *Cache) Invalidate(params map[string]any) {
	key := Key(params)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// lookup returns the entry for key if it exists and has not expired.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.data, true
}

// store records a settled result with the current timestamp.
func (c *Cache) store(key string, data any) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, storedAt: c.now()}
	c.mu.Unlock()
}
