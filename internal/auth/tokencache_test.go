package auth

import (
	"testing"
	"time"
)

func TestTokenCacheExpiry(t *testing.T) {
	cache := NewTokenCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("session", "abc123")
	if v, ok := cache.Get("session"); !ok || v != "abc123" {
		t.Fatalf("Get = %q, %v; want abc123, true", v, ok)
	}

	now = now.Add(time.Minute + time.Second)
	if _, ok := cache.Get("session"); ok {
		t.Error("expired entry still served")
	}
	// The expired entry is removed on access.
	if len(cache.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(cache.entries))
	}
}

func TestTokenCacheSetResetsTTL(t *testing.T) {
	cache := NewTokenCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("session", "first")
	now = now.Add(50 * time.Second)
	cache.Set("session", "second")
	now = now.Add(30 * time.Second)

	if v, ok := cache.Get("session"); !ok || v != "second" {
		t.Errorf("Get = %q, %v; want second, true", v, ok)
	}
}

func TestTokenCacheDelete(t *testing.T) {
	cache := NewTokenCache(time.Minute)
	cache.Set("session", "abc")
	cache.Delete("session")
	if _, ok := cache.Get("session"); ok {
		t.Error("deleted entry still served")
	}
}
