package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter holds a per-IP token bucket, configured from the
// process-wide THROTTLE_TTL/THROTTLE_LIMIT env knobs: limit requests per
// ttl window.
type IPRateLimiter struct {
	ips   sync.Map
	rps   rate.Limit
	burst int
}

// NewIPRateLimiter builds a limiter allowing limit requests per ttl,
// bursting up to limit at once.
func NewIPRateLimiter(ttl time.Duration, limit int) *IPRateLimiter {
	if ttl <= 0 {
		ttl = time.Second
	}
	if limit <= 0 {
		limit = 1
	}
	i := &IPRateLimiter{
		rps:   rate.Limit(float64(limit) / ttl.Seconds()),
		burst: limit,
	}
	go i.cleanupLoop()
	return i
}

// GetLimiter returns the rate limiter for the given client IP, creating
// one on first sight.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if existing, ok := i.ips.Load(ip); ok {
		return existing.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(i.rps, i.burst)
	actual, _ := i.ips.LoadOrStore(ip, fresh)
	return actual.(*rate.Limiter)
}

// cleanupLoop periodically discards every tracked limiter so long-lived
// processes don't accumulate one entry per IP ever seen; a full wipe is
// acceptable since a freshly created limiter starts full anyway.
func (i *IPRateLimiter) cleanupLoop() {
	for {
		time.Sleep(10 * time.Minute)
		i.ips.Range(func(key, _ any) bool {
			i.ips.Delete(key)
			return true
		})
	}
}

// Middleware enforces the per-IP limit, responding 429 once exhausted.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !i.GetLimiter(ip).Allow() {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
