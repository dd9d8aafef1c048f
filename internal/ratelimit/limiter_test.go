package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "rl:test", limit, window), mr
}

func TestAllowCountsDownAndBlocks(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d blocked, want allowed", i)
		}
		if res.Remaining != 5-i {
			t.Errorf("request %d: remaining = %d, want %d", i, res.Remaining, 5-i)
		}
	}

	res, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Error("6th request allowed, want blocked")
	}
	if res.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter <= 0 {
		t.Errorf("retryAfter = %v, want positive", res.RetryAfter)
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "10.0.0.1"); !res.Allowed {
		t.Fatal("first key blocked")
	}
	if res, _ := limiter.Allow(ctx, "10.0.0.2"); !res.Allowed {
		t.Error("second key shares the first key's window")
	}
	if res, _ := limiter.Allow(ctx, "10.0.0.1"); res.Allowed {
		t.Error("first key not limited")
	}
}

func TestWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "10.0.0.1"); !res.Allowed {
		t.Fatal("first request blocked")
	}
	if res, _ := limiter.Allow(ctx, "10.0.0.1"); res.Allowed {
		t.Fatal("second request allowed within window")
	}

	mr.FastForward(61 * time.Second)

	if res, _ := limiter.Allow(ctx, "10.0.0.1"); !res.Allowed {
		t.Error("request blocked after window elapsed")
	}
}

func TestMiddlewareEmitsHeadersAnd429(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("RateLimit-Limit") != "2" {
		t.Errorf("RateLimit-Limit = %q, want 2", last.Header().Get("RateLimit-Limit"))
	}
	if last.Header().Get("RateLimit-Remaining") != "0" {
		t.Errorf("RateLimit-Remaining = %q, want 0", last.Header().Get("RateLimit-Remaining"))
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
}

func TestMiddlewareFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 (fail open)", i+1, rec.Code)
		}
	}
}
