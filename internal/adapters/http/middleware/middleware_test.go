package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		assert.NotEmpty(t, rec.Header().Get(h), h)
	}
}

func TestChain_LastRunsFirst(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler(), tag("inner"), tag("outer")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestCSRF(t *testing.T) {
	h := CSRF(make([]byte, 32), CSRFOptions{})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/volunteer/trainings/register", strings.NewReader("training_id=t1")))
	assert.Equal(t, http.StatusForbidden, rec.Code, "form post without token")

	req := httptest.NewRequest("POST", "/admin/outbox/x/retry", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "JSON post")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	defer rl.Close()
	clock := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, rl.Allow("5.6.7.8"), "buckets are per IP")

	clock = clock.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow("1.2.3.4"), "one token refilled")
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Close()
	clock := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("1.2.3.4")
	clock = clock.Add(2 * time.Minute)
	rl.Allow("5.6.7.8")
	rl.evictIdle(time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "1.2.3.4")
	assert.Contains(t, rl.buckets, "5.6.7.8")
}

func TestRateLimit_StrictRule(t *testing.T) {
	general := NewRateLimiter(100, time.Second)
	login := NewRateLimiter(1, time.Minute)
	defer general.Close()
	defer login.Close()
	h := RateLimit(general, StrictRule{Match: PostTo("/login"), Limiter: login})(okHandler())

	post := func() int {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	req := httptest.NewRequest("GET", "/login", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "GET is not charged to the login limiter")
}
