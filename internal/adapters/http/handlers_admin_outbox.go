package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/domain/outbox"
)

// outboxView is the JSON body of GET /admin/outbox.
type outboxView struct {
	Counts  map[string]int `json:"counts"`
	Entries []outbox.Entry `json:"entries"`
}

// handleAdminOutbox lists queued notification e-mails.
// GET /admin/outbox?status=failed|pending&limit=N
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var entries []outbox.Entry
	var err error
	if q.Get("status") == "pending" {
		entries, err = stores.OutboxStore.ListPending(ctx, limit)
	} else {
		entries, err = stores.OutboxStore.ListFailed(ctx, limit)
	}
	if err != nil {
		internalError(w, err)
		return
	}
	counts, err := stores.OutboxStore.CountByStatus(ctx)
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []outbox.Entry{}
	}
	writeJSON(w, http.StatusOK, outboxView{Counts: counts, Entries: entries})
}

// handleAdminOutboxAction handles POST /admin/outbox/{id}/{action} with action retry or abandon.
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if services == nil || services.Outbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "outbox processor not configured"})
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	id := r.PathValue("id")

	var err error
	var status string
	switch r.PathValue("action") {
	case "retry":
		err = services.Outbox.ProcessSingle(r.Context(), id)
		status = "retry triggered"
	case "abandon":
		err = services.Outbox.AbandonEntry(r.Context(), id)
		status = "abandoned"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action"})
		return
	}
	if errors.Is(err, outbox.ErrTerminal) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	slog.Info("outbox_event", "event", "manual_"+r.PathValue("action"), "entry_id", id, "admin_id", sess.AccountID)
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleAdminPerf returns request and query timings for the last hour.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "timing collector not configured"})
		return
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-time.Hour), 10))
}
