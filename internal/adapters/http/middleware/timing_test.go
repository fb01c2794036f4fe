package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frsm/internal/adapters/http/perf"
)

func serveTimed(collector *perf.Collector, slowMs int, h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Timing(collector, slowMs)(h).ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func lastRoute(t *testing.T, c *perf.Collector) perf.Stat {
	t.Helper()
	snap := c.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 {
		t.Fatalf("SlowestRoutes = %+v, want exactly one", snap.SlowestRoutes)
	}
	return snap.SlowestRoutes[0]
}

func TestTiming_RecordsRouteAndStatus(t *testing.T) {
	c := perf.NewCollector(10)
	rr := serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}, http.MethodPost, "/volunteer/trainings/register")

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
	if got := lastRoute(t, c); got.Name != "POST /volunteer/trainings/register" || got.Count != 1 {
		t.Errorf("route = %+v", got)
	}
}

func TestTiming_GroupsIDSegments(t *testing.T) {
	c := perf.NewCollector(10)
	ok := func(w http.ResponseWriter, r *http.Request) {}
	serveTimed(c, 0, ok, http.MethodPost, "/admin/outbox/5f0c6d3e-7a0b-4e54-9a43-2d1f8a6b9c10/retry")
	serveTimed(c, 0, ok, http.MethodPost, "/admin/outbox/0b7e1a1c-3f7c-4d0e-8a31-6f4b2c9d8e71/retry")

	if got := lastRoute(t, c); got.Name != "POST /admin/outbox/{id}/retry" || got.Count != 2 {
		t.Errorf("route = %+v", got)
	}
}

func TestTiming_SkipsStatic(t *testing.T) {
	c := perf.NewCollector(10)
	rr := serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) {}, http.MethodGet, "/static/app.css")

	if c.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0", c.TotalRecorded())
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestTiming_NilCollector(t *testing.T) {
	rr := serveTimed(nil, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}, http.MethodGet, "/employee/trainings")
	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rr.Code)
	}
}

func TestTiming_CountsServerErrors(t *testing.T) {
	c := perf.NewCollector(10)
	serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, http.MethodPost, "/admin/training/approve")

	if got := lastRoute(t, c); got.Errors != 1 {
		t.Errorf("Errors = %d, want 1", got.Errors)
	}
}

// A pooled recorder must not carry the previous request's status.
func TestTiming_RecorderReuseResetsStatus(t *testing.T) {
	c := perf.NewCollector(10)
	serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, http.MethodGet, "/admin/training/records")
	serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}, http.MethodGet, "/notifications")

	snap := c.Snapshot(time.Now().Add(-time.Minute), 10)
	if snap.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", snap.ServerErrors)
	}
}

func TestTiming_RecordsWhenHandlerPanics(t *testing.T) {
	c := perf.NewCollector(10)
	defer func() {
		if recover() == nil {
			t.Fatal("panic was swallowed")
		}
		if c.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1", c.TotalRecorded())
		}
	}()
	serveTimed(c, 0, func(w http.ResponseWriter, r *http.Request) { panic("boom") }, http.MethodGet, "/volunteer/records")
}

func TestTiming_SlowRequest(t *testing.T) {
	c := perf.NewCollector(10)
	h := Timing(c, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Millisecond)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/training/records", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{AccountID: "a1", Role: "admin"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := lastRoute(t, c); got.MaxMs < 1 {
		t.Errorf("MaxMs = %v, want >= 1", got.MaxMs)
	}
}

func BenchmarkTiming(b *testing.B) {
	c := perf.NewCollector(perf.DefaultRingSize)
	h := Timing(c, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/employee/trainings", nil)
	b.ReportAllocs()
	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
