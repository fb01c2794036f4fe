package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket per client IP. Each bucket holds up to burst
// tokens and refills at burst per interval.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	perSec  float64
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter starts a limiter and its idle-bucket janitor. Call Close to stop the janitor.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: map[string]*bucket{},
		burst:   float64(burst),
		perSec:  float64(burst) / interval.Seconds(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	idle := max(interval*2, time.Minute)
	go rl.janitor(idle)
	return rl
}

// Allow takes one token from ip's bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[ip] = b
	}
	b.tokens = min(rl.burst, b.tokens+now.Sub(b.last).Seconds()*rl.perSec)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Close stops the janitor.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor(idle time.Duration) {
	t := time.NewTicker(idle)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-t.C:
			rl.evictIdle(idle)
		}
	}
}

// evictIdle drops buckets untouched for idle; they would be full again anyway.
func (rl *RateLimiter) evictIdle(idle time.Duration) {
	cutoff := rl.now().Add(-idle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if b.last.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// RateLimit answers 429 when the client's bucket is empty. A request matching
// a strict rule is charged against that rule's limiter as well.
func RateLimit(limiter *RateLimiter, strict ...StrictRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed := limiter.Allow(ip)
			for _, rule := range strict {
				if allowed && rule.Match(r) {
					allowed = rule.Limiter.Allow(ip)
				}
			}
			if !allowed {
				slog.Warn("rate_limit_event", "event", "rejected", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StrictRule applies a tighter limiter to matching requests, e.g. login posts.
type StrictRule struct {
	Match   func(*http.Request) bool
	Limiter *RateLimiter
}

// PostTo matches POST requests to path.
func PostTo(path string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return r.Method == http.MethodPost && r.URL.Path == path
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
