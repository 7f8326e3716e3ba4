package middleware

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Limiter counts requests per key in a fixed window.
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error)
}

// RateLimitMiddleware provides rate limiting functionality
type RateLimitMiddleware struct {
	limiter Limiter
	limit   int
	enabled bool
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter, limit int, enabled bool, logger *zap.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		enabled: enabled,
		logger:  logger,
	}
}

// Handler returns the middleware handler
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip if rate limiting is disabled
		if !m.enabled || m.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Skip for probes and scrapes
		switch r.URL.Path {
		case "/health", "/ready", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		key := rateLimitKey(r)

		allowed, count, err := m.limiter.CheckRateLimit(r.Context(), key, m.limit)
		if err != nil {
			// On store error, allow the request
			m.logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitKey keys requests by client address
func rateLimitKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
