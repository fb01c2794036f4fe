package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"frsm/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the slow-request threshold used when none is configured.
const DefaultSlowRequestMs = 200

var requestSeq atomic.Uint64

// statusRecorder remembers the status a handler wrote. Implicit writes count as 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

var recorderPool = sync.Pool{New: func() any { return new(statusRecorder) }}

// Timing logs each non-static request and records it into collector (may be nil).
// Requests at or above slowMs (DefaultSlowRequestMs when <= 0) log at WARN with
// the caller's role; others log at DEBUG.
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	slow := time.Duration(slowMs) * time.Millisecond

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := recorderPool.Get().(*statusRecorder)
			rec.ResponseWriter, rec.status = w, http.StatusOK

			defer func() {
				elapsed := time.Since(start)
				route := perf.RouteName(r.Method, r.URL.Path)
				attrs := []any{
					"request_id", requestSeq.Add(1),
					"route", route,
					"status", rec.status,
					"duration_ms", float64(elapsed.Microseconds()) / 1000,
				}
				if elapsed >= slow {
					role := "anonymous"
					if sess, ok := GetSessionFromContext(r.Context()); ok {
						role = sess.Role
					}
					slog.Warn("slow_request", append(attrs, "role", role)...)
				} else {
					slog.Debug("request", attrs...)
				}
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:     perf.KindRequest,
						Name:     route,
						Status:   rec.status,
						Duration: elapsed,
						At:       start,
					})
				}
				rec.ResponseWriter = nil
				recorderPool.Put(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
