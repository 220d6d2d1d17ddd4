package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitEntryTTL        = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterMap holds one token bucket per client IP.
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
}

func newRateLimiterMap(requestsPerMinute int) *rateLimiterMap {
	requestsPerMinute = max(requestsPerMinute, 1)

	return &rateLimiterMap{
		limiters: make(map[string]*clientLimiter, 64),
		rps:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
	}
}

func (rl *rateLimiterMap) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = entry
	}

	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// prune drops limiters idle for longer than ttl.
func (rl *rateLimiterMap) prune(ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.limiters {
		if time.Since(entry.lastSeen) > ttl {
			delete(rl.limiters, ip)
		}
	}
}

// runCleanup prunes idle limiters until done is closed.
func (rl *rateLimiterMap) runCleanup(done <-chan struct{}) {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.prune(rateLimitEntryTTL)
		case <-done:
			return
		}
	}
}

// rateLimitMiddleware returns a per-IP rate limiting middleware.
func (s *server) rateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	limiters := newRateLimiterMap(requestsPerMinute)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		limiters.runCleanup(s.done)
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(extractIP(r)) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{"rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP returns the client IP, preferring the first X-Forwarded-For hop.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
