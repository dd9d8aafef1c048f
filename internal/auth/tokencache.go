package auth

import (
	"sync"
	"time"
)

// TokenCache is a small TTL key-value cache with lazy expiry. It holds
// short-lived session tokens for external APIs (the bookkeeping SOAP session
// ID) so call sites do not depend on ambient global state and the cache can
// later be swapped for a distributed one.
type TokenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]tokenCacheEntry
}

type tokenCacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewTokenCache creates a cache whose entries expire after ttl.
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]tokenCacheEntry),
	}
}

// Get returns the cached value for key if present and not expired. Expired
// entries are removed on access.
func (c *TokenCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key, resetting its TTL.
func (c *TokenCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = tokenCacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes the entry for key, if any.
func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
