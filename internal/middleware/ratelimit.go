// ratelimit.go implements a per-IP token-bucket limiter kept in memory.
// It sits in front of credential-handling endpoints. The gate's own
// issuance limit is separate and stored in Redis.

package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// limiterEntry tracks the bucket for a single IP and when it was last used.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP.
type ipLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	every   rate.Limit
	burst   int
}

func newIPLimiter(maxRequests int, window time.Duration) *ipLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &ipLimiter{
		entries: make(map[string]*limiterEntry),
		every:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
	}
}

// allow consumes one token for ip, creating its bucket on first sight.
func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than maxIdle.
func (l *ipLimiter) sweep(now time.Time, maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) > maxIdle {
			delete(l.entries, ip)
		}
	}
}

// RateLimit returns middleware that allows maxRequests per IP per window,
// refilling continuously. Returns 429 when a bucket is empty.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := newIPLimiter(maxRequests, window)

	// Background cleanup of idle buckets every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			l.sweep(time.Now(), window*2)
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP(), time.Now()) {
				return apperror.NewTooManyRequests("Too many requests. Please try again later.")
			}
			return next(c)
		}
	}
}
