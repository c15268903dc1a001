package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"identity-broker/internal/logger"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 4096
)

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter is a token bucket per key (client IP).
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewRateLimiter allows perMinute events per key with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) >= limiterSweepSize {
		l.sweep(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.seen) > limiterIdleTTL {
			delete(l.entries, k)
		}
	}
}

// GinRateLimit rejects callers over their budget in the caller's response
// style: 429 JSON for API callers, a redirect back with a notice for browsers.
func GinRateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		logger.Warn("rate limit exceeded", map[string]any{"path": c.FullPath()})
		if IsAPIRequest(c.Request) {
			WriteJSONError(c.Writer, http.StatusTooManyRequests, "rate_limited", "too many requests")
		} else {
			c.Redirect(http.StatusSeeOther, WithNotice(c.Request.URL.Path, NoticeRateLimited))
		}
		c.Abort()
	}
}
