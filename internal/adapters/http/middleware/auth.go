package middleware

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	domainAccount "frsm/internal/domain/account"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "frsm_session"

	sessionLifetime = 24 * time.Hour
	sessionIdle     = 2 * time.Hour
	sweepEvery      = 128 // creates between expiry sweeps
)

// SecureCookies marks session cookies Secure. Set in production.
var SecureCookies = false

// Session is the signed-in account as seen by handlers.
type Session struct {
	AccountID   string
	Email       string
	Role        string
	DisplayName string
	CreatedAt   time.Time
}

// IsStaff reports whether the session belongs to an employee or admin.
func (s Session) IsStaff() bool {
	return s.Role == domainAccount.RoleAdmin || s.Role == domainAccount.RoleEmployee
}

type sessionEntry struct {
	Session
	lastSeen time.Time
}

// SessionStore keeps sessions in memory. A session ends 24 hours after
// sign-in, or after two hours without a request.
type SessionStore struct {
	mu      sync.Mutex
	byToken map[string]*sessionEntry
	creates int
	now     func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{byToken: map[string]*sessionEntry{}, now: time.Now}
}

// Create starts a session and returns its token.
func (ss *SessionStore) Create(accountID, email, role, displayName string) (string, error) {
	token := rand.Text()
	now := ss.now()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byToken[token] = &sessionEntry{
		Session: Session{
			AccountID:   accountID,
			Email:       email,
			Role:        role,
			DisplayName: displayName,
			CreatedAt:   now,
		},
		lastSeen: now,
	}
	if ss.creates++; ss.creates%sweepEvery == 0 {
		ss.sweepLocked(now)
	}
	return token, nil
}

// Get returns the live session for token and marks it as used.
func (ss *SessionStore) Get(token string) (Session, bool) {
	now := ss.now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	e, ok := ss.byToken[token]
	if !ok {
		return Session{}, false
	}
	if e.expired(now) {
		delete(ss.byToken, token)
		return Session{}, false
	}
	e.lastSeen = now
	return e.Session, true
}

// Delete ends one session.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	delete(ss.byToken, token)
	ss.mu.Unlock()
}

// DeleteAccount ends every session of an account and returns how many there were.
func (ss *SessionStore) DeleteAccount(accountID string) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for token, e := range ss.byToken {
		if e.AccountID == accountID {
			delete(ss.byToken, token)
			n++
		}
	}
	return n
}

// Len is the number of stored sessions, expired ones included until swept.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byToken)
}

func (ss *SessionStore) sweepLocked(now time.Time) {
	for token, e := range ss.byToken {
		if e.expired(now) {
			delete(ss.byToken, token)
		}
	}
}

func (e *sessionEntry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > sessionLifetime || now.Sub(e.lastSeen) > sessionIdle
}

type sessionKey struct{}

// ContextWithSession returns ctx carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// GetSessionFromContext returns the session Auth attached to ctx.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}

// IsRole reports whether ctx carries a session with one of roles.
func IsRole(ctx context.Context, roles ...string) bool {
	sess, ok := GetSessionFromContext(ctx)
	return ok && slices.Contains(roles, sess.Role)
}

// Auth attaches the cookie's session to the request context. It never blocks;
// RequireAuth and RequireRole do that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				if sess, ok := sessions.Get(c.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth sends anonymous requests to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole sends anonymous requests to /login and answers 403 to other roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSessionFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !slices.Contains(roles, sess.Role) {
				slog.Info("auth_event", "event", "forbidden", "account_id", sess.AccountID, "role", sess.Role, "path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(w http.ResponseWriter, token string) {
	writeSessionCookie(w, token, int(sessionLifetime.Seconds()))
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	writeSessionCookie(w, "", -1)
}

func writeSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
