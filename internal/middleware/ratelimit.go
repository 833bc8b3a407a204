package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tradecove/tradecove-api/internal/handler"
	"github.com/tradecove/tradecove-api/internal/logging"
)

// RateLimiter is a fixed-window limiter on Redis INCR/EXPIRE, keyed by
// client IP. With no Redis configured, or when Redis is down, it fails
// open: availability over strictness.
type RateLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewRateLimiter(addr, password string, db, max int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{max: int64(max), window: window}
	if addr == "" {
		return rl
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.FromContext(ctx).Warn("redis unavailable, rate limiting disabled", "error", err)
		return rl
	}

	rl.client = client
	return rl
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "rl:" + strconv.FormatInt(int64(rl.window.Seconds()), 10) + ":" + clientIP(r)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			w.Header().Set("X-RateLimit-Error", "redis-error")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		if count > rl.max {
			rateLimiterBlocked.Inc()
			handler.RespondAppError(w, handler.ErrRateLimited, nil)
			return
		}

		rateLimiterRequests.Inc()
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
