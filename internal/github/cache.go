package github

import (
	"sync"
	"time"
)

// cacheEntry holds one cached response body and the validator the server
// handed out with it. At most one live entry exists per endpoint.
type cacheEntry struct {
	ETag     string
	Body     []byte
	StoredAt time.Time
}

// conditionalCache is a keyed store of endpoint -> (validator, body). It is
// consulted from many concurrent sub-fetches, so all access is serialized.
// There is no TTL: entries are superseded by the next successful fetch and
// only removed by an explicit clear.
type conditionalCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newConditionalCache() *conditionalCache {
	return &conditionalCache{entries: make(map[string]cacheEntry)}
}

func (c *conditionalCache) cached(endpoint string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[endpoint]
	return entry, ok
}

func (c *conditionalCache) save(endpoint, etag string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[endpoint] = cacheEntry{
		ETag:     etag,
		Body:     body,
		StoredAt: time.Now(),
	}
}

func (c *conditionalCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *conditionalCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// backoffTracker records per-endpoint cooldown windows. A request to an
// endpoint before its window expires must be rejected locally without a
// network call.
type backoffTracker struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func newBackoffTracker() *backoffTracker {
	return &backoffTracker{until: make(map[string]time.Time)}
}

// cooldown returns the active cooldown deadline for an endpoint, if any.
// Expired entries are pruned on lookup.
func (b *backoffTracker) cooldown(endpoint string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	deadline, ok := b.until[endpoint]
	if !ok {
		return time.Time{}, false
	}
	if time.Now().After(deadline) {
		delete(b.until, endpoint)
		return time.Time{}, false
	}
	return deadline, true
}

func (b *backoffTracker) set(endpoint string, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[endpoint] = until
}

func (b *backoffTracker) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until = make(map[string]time.Time)
}

// active counts cooldowns that have not yet expired.
func (b *backoffTracker) active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	count := 0
	for endpoint, deadline := range b.until {
		if now.After(deadline) {
			delete(b.until, endpoint)
			continue
		}
		count++
	}
	return count
}
