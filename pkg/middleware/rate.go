// Package middleware provides the HTTP middleware stack.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// bucket tracks a fixed-window request count for one client.
type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

func (b *bucket) allow(max int, window time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(window)
	}

	b.count++
	return b.count <= max
}

// Limiter counts requests per key in fixed windows. With Redis connected the
// count is shared across instances; otherwise it is kept in process.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, buckets: map[string]*bucket{}}
}

// Allow records one request for key and reports whether it is within limits.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if cache.RDB != nil {
		ok, err := l.allowRedis(ctx, key)
		if err == nil {
			return ok
		}
		logger.WithCtx(ctx).Warn("rate limit: redis unavailable, using local counter", "error", err)
	}
	return l.bucket(key).allow(l.max, l.window)
}

func (l *Limiter) allowRedis(ctx context.Context, key string) (bool, error) {
	window := time.Now().UnixNano() / int64(l.window)
	rkey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := cache.RDB.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.Expire(ctx, rkey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.max), nil
}

func (l *Limiter) bucket(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.buckets) > 10000 {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
	}
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b := &bucket{resetAt: now.Add(l.window)}
	l.buckets[key] = b
	return b
}

// RateLimit limits each client to max requests per window. Authenticated
// requests are keyed by user, anonymous ones by IP.
//
//	r.Use(middleware.RateLimit(config.RateLimitPerMinute(), time.Minute))
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(max, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r.Context(), clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"status":429,"message":"Too Many Requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return "user:" + p.UserID
	}
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	} else if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return "ip:" + ip
}
