package client

import (
	"sync"
	"time"
)

// DefaultHealthTTL is how long a health result is reused.
const DefaultHealthTTL = 30 * time.Second

// DefaultHealthCache is shared by every client that does not set its own cache.
var DefaultHealthCache = NewHealthCache(DefaultHealthTTL)

type healthEntry struct {
	available bool
	expires   time.Time
}

// HealthCache memoises service availability per endpoint URL for a fixed TTL.
type HealthCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]healthEntry
}

func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]healthEntry),
	}
}

// Get returns the cached availability of url, if it has not expired.
func (c *HealthCache) Get(url string) (available, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	if !ok || !c.now().Before(e.expires) {
		return false, false
	}
	return e.available, true
}

func (c *HealthCache) Put(url string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = healthEntry{available: available, expires: c.now().Add(c.ttl)}
}

// Invalidate drops the entry for url.
func (c *HealthCache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}
