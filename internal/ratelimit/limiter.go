// Package ratelimit provides redis-backed fixed-window rate limiting for
// abuse-prone endpoints. Counters are keyed by source address and by limiter
// prefix, so the login limiter and the general limiter never share windows.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Limiter counts requests per key within a fixed window.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// Result describes the outcome of a limiter check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// New creates a limiter allowing limit requests per window. The prefix keeps
// this limiter's counters separate from other limiter instances.
func New(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow atomically increments the counter for key and reports whether the
// request fits in the current window. The increment-and-expire pair runs in
// one pipeline so concurrent bursts are never undercounted.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("redis error: %w", err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
	}
	if ttl, err := l.rdb.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
		res.RetryAfter = ttl
	} else {
		res.RetryAfter = l.window
	}
	return res, nil
}

// Reset clears the counter for key. Used by tests and admin tooling.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}

// Middleware returns a gin middleware applying the limiter per client
// address. Rate-limit headers are emitted on every response. Redis failures
// fail open: blocking all traffic on a cache outage would be worse than
// briefly losing the ceiling.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logging.Warn().Err(err).Str("prefix", l.prefix).Msg("rate limiter unavailable, failing open")
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(res.RetryAfter.Seconds())))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"message": "Te veel verzoeken. Probeer het over enkele minuten opnieuw.",
			})
			return
		}
		c.Next()
	}
}
