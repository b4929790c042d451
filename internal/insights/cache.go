// Package insights produces short AI-written recommendations for a linked
// account and caches them, since each one costs an LLM call.
package insights

import (
	"strings"
	"sync"
	"time"
)

const DefaultTTL = time.Hour

type cachedInsight struct {
	text      string
	expiresAt time.Time
}

// Cache maps userID:accountID to generated insight text. Entries expire
// lazily; concurrent misses may compute the same insight twice, which is
// acceptable, the generator is idempotent.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cachedInsight
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]cachedInsight),
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(userID, accountID string) string { return userID + ":" + accountID }

// Get returns the cached insight or computes, stores, and returns a fresh
// one. compute errors are not cached.
func (c *Cache) Get(userID, accountID string, compute func() (string, error)) (string, error) {
	key := cacheKey(userID, accountID)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.text, nil
	}

	text, err := compute()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = cachedInsight{text: text, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return text, nil
}

// Invalidate drops one account's insight, forcing the next Get to recompute.
func (c *Cache) Invalidate(userID, accountID string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(userID, accountID))
	c.mu.Unlock()
}

// InvalidateAll drops every cached insight belonging to the user.
func (c *Cache) InvalidateAll(userID string) {
	prefix := userID + ":"
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
