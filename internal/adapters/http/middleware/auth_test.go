package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainAccount "frsm/internal/domain/account"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// clockedStore returns a store whose clock the test moves by hand.
func clockedStore(start time.Time) (*SessionStore, *time.Time) {
	ss := NewSessionStore()
	clock := start
	ss.now = func() time.Time { return clock }
	return ss, &clock
}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	ss := NewSessionStore()
	token, err := ss.Create("acc-1", "ana@example.com", domainAccount.RoleUser, "Ana Reyes")
	require.NoError(t, err)
	assert.Len(t, token, 26)

	sess, ok := ss.Get(token)
	require.True(t, ok)
	assert.Equal(t, "acc-1", sess.AccountID)
	assert.Equal(t, "Ana Reyes", sess.DisplayName)

	ss.Delete(token)
	_, ok = ss.Get(token)
	assert.False(t, ok, "session present after Delete")
}

func TestSessionStore_Expiry(t *testing.T) {
	start := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

	t.Run("idle timeout", func(t *testing.T) {
		ss, clock := clockedStore(start)
		token, _ := ss.Create("acc-1", "a@example.com", domainAccount.RoleUser, "A")
		*clock = start.Add(sessionIdle + time.Second)
		_, ok := ss.Get(token)
		assert.False(t, ok)
		assert.Zero(t, ss.Len(), "expired session not evicted")
	})

	t.Run("activity extends idle window", func(t *testing.T) {
		ss, clock := clockedStore(start)
		token, _ := ss.Create("acc-1", "a@example.com", domainAccount.RoleUser, "A")
		for range 5 {
			*clock = clock.Add(time.Hour)
			_, ok := ss.Get(token)
			require.True(t, ok, "active session dropped at %s", clock.Format(time.Kitchen))
		}
	})

	t.Run("absolute lifetime", func(t *testing.T) {
		ss, clock := clockedStore(start)
		token, _ := ss.Create("acc-1", "a@example.com", domainAccount.RoleUser, "A")
		for *clock = start; clock.Before(start.Add(sessionLifetime)); *clock = clock.Add(time.Hour) {
			ss.Get(token)
		}
		*clock = start.Add(sessionLifetime + time.Minute)
		_, ok := ss.Get(token)
		assert.False(t, ok)
	})
}

func TestSessionStore_SweepsOnCreate(t *testing.T) {
	start := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	ss, clock := clockedStore(start)
	for range sweepEvery - 1 {
		ss.Create("old", "o@example.com", domainAccount.RoleUser, "O")
	}
	*clock = start.Add(sessionLifetime + time.Hour)
	ss.Create("new", "n@example.com", domainAccount.RoleUser, "N")
	assert.Equal(t, 1, ss.Len())
}

func TestSessionStore_DeleteAccount(t *testing.T) {
	ss := NewSessionStore()
	a, _ := ss.Create("acc-1", "a@example.com", domainAccount.RoleUser, "A")
	b, _ := ss.Create("acc-1", "a@example.com", domainAccount.RoleUser, "A")
	c, _ := ss.Create("acc-2", "c@example.com", domainAccount.RoleAdmin, "C")

	assert.Equal(t, 2, ss.DeleteAccount("acc-1"))
	for _, tok := range []string{a, b} {
		_, ok := ss.Get(tok)
		assert.False(t, ok, "acc-1 session survived DeleteAccount")
	}
	_, ok := ss.Get(c)
	assert.True(t, ok, "acc-2 session removed")
}

func TestAuth_SetsSessionFromCookie(t *testing.T) {
	ss := NewSessionStore()
	token, _ := ss.Create("acc-1", "ana@example.com", domainAccount.RoleEmployee, "Ana")

	var got Session
	var found bool
	h := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, found)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.True(t, got.IsStaff())

	found = false
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, found, "unknown token produced a session")
}

func TestIsRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.False(t, IsRole(req.Context(), domainAccount.RoleUser))

	ctx := ContextWithSession(req.Context(), Session{Role: domainAccount.RoleEmployee})
	assert.True(t, IsRole(ctx, domainAccount.RoleAdmin, domainAccount.RoleEmployee))
	assert.False(t, IsRole(ctx, domainAccount.RoleUser))
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(domainAccount.RoleEmployee, domainAccount.RoleAdmin)(okHandler())

	tests := []struct {
		name     string
		sess     *Session
		wantCode int
	}{
		{"anonymous", nil, http.StatusSeeOther},
		{"volunteer", &Session{AccountID: "u", Role: domainAccount.RoleUser}, http.StatusForbidden},
		{"employee", &Session{AccountID: "e", Role: domainAccount.RoleEmployee}, http.StatusOK},
		{"admin", &Session{AccountID: "a", Role: domainAccount.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/employee/trainings", nil)
			if tt.sess != nil {
				req = req.WithContext(ContextWithSession(req.Context(), *tt.sess))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusSeeOther {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/notifications", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest("GET", "/notifications", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{AccountID: "u", Role: domainAccount.RoleUser}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok")
	ClearSessionCookie(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, -1, cookies[1].MaxAge)
}
