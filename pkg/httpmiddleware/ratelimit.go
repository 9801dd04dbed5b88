package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables
	// limiting.
	Max    int
	Window time.Duration
	// KeyFunc extracts the client key. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// counter holds the request counts of the current and previous fixed
// windows of one client.
type counter struct {
	start time.Time
	curr  float64
	prev  float64
}

// RateLimiter is a per-client sliding window rate limiter. The estimate for
// a client is prev*(1-elapsed/window) + curr.
type RateLimiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	counters map[string]*counter
}

// NewRateLimiter returns a RateLimiter for cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &RateLimiter{cfg: cfg, counters: map[string]*counter{}}
}

// Allow records a request of key at now. It reports whether the request is
// within the limit, how many requests remain and when the current window
// ends.
func (rl *RateLimiter) Allow(key string, now time.Time) (allowed bool, remaining int, reset time.Time) {
	window := rl.cfg.Window
	start := now.Truncate(window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.counters[key]
	switch {
	case !ok:
		c = &counter{start: start}
		rl.counters[key] = c
	case start.Sub(c.start) >= 2*window:
		*c = counter{start: start}
	case start.After(c.start):
		*c = counter{start: start, prev: c.curr}
	}

	weight := 1 - float64(now.Sub(c.start))/float64(window)
	estimate := c.prev*math.Max(weight, 0) + c.curr
	reset = c.start.Add(window)

	if estimate >= float64(rl.cfg.Max) {
		return false, 0, reset
	}
	c.curr++
	return true, max(int(float64(rl.cfg.Max)-estimate-1), 0), reset
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

// Prune forgets clients idle for two windows.
func (rl *RateLimiter) Prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, c := range rl.counters {
		if now.Sub(c.start) >= 2*rl.cfg.Window {
			delete(rl.counters, key)
		}
	}
}

// Run prunes idle clients every two windows until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) error {
	if rl.cfg.Max <= 0 || rl.cfg.Window <= 0 {
		return nil
	}
	ticker := time.NewTicker(2 * rl.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			rl.Prune(now)
		}
	}
}

// Middleware enforces the limit. Every response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset; rejected requests get a JSON
// 429 with Retry-After.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if rl.cfg.Max <= 0 || rl.cfg.Window <= 0 {
			return next
		}
		limit := strconv.Itoa(rl.cfg.Max)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			allowed, remaining, reset := rl.Allow(rl.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				retry := math.Ceil(max(reset.Sub(now), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(retry)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
