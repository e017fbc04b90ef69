package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed-window counter per client and route in Redis. It
// fails open when Redis is unavailable.
type RateLimiter struct {
	redis    *redis.Client
	requests int
	window   time.Duration
	logger   *slog.Logger
}

func NewRateLimiter(redisClient *redis.Client, requests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:    redisClient,
		requests: requests,
		window:   window,
		logger:   logger,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitPrefix + clientIP(r) + ":" + r.Method + " " + matchedRoute(r)

		allowed, remaining, err := rl.isAllowed(r.Context(), key)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			utils.Error(w, apperrors.NewAPIError("rate_limit_exceeded", "too many requests, please try again later", http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (bool, int, error) {
	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, rl.requests, err
	}
	// The first hit opens the window.
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.window).Err(); err != nil {
			return true, rl.requests, err
		}
	}

	remaining := rl.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= rl.requests, remaining, nil
}

// matchedRoute resolves the route pattern before routing has happened, so
// /rides/{id} shares one bucket across ride ids.
func matchedRoute(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return r.URL.Path
	}
	if pattern := rctx.Routes.Find(chi.NewRouteContext(), r.Method, r.URL.Path); pattern != "" {
		return pattern
	}
	return r.URL.Path
}
