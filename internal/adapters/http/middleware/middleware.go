// Package middleware holds the HTTP middleware chain: sessions and role guards,
// CSRF, security headers, rate limiting and request timing.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
)

// Chain wraps h in middlewares; the last one listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; " +
	"img-src 'self' data:; object-src 'none'; frame-ancestors 'none'; form-action 'self'"

// SecurityHeaders sets the CSP and the usual hardening headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// CSRFOptions configures CSRF.
type CSRFOptions struct {
	Secure         bool     // cookie over HTTPS only; false also skips the Referer check
	TrustedOrigins []string // host[:port] values allowed to post forms
}

// CSRF protects every unsafe request with a gorilla/csrf token, except JSON
// requests, which browsers cannot send cross-origin without CORS.
// authKey must be 32 bytes.
func CSRF(authKey []byte, opts CSRFOptions) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.CookieName("frsm_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if !opts.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}
