package web

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/application/projections"
)

// handleCertificateDownload serves GET /certificates/download?id= to the certificate's
// owner and to admins.
func handleCertificateDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Certificate ID is required", http.StatusBadRequest)
		return
	}

	rec, err := stores.CertificateStore.GetRecord(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if !projections.CanViewCertificate(projections.Viewer{AccountID: sess.AccountID, Role: sess.Role}, rec.VolunteerUserID) {
		slog.Warn("certificate_event", "event", "download_denied", "certificate_id", id, "account_id", sess.AccountID)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if rec.Certificate.File == "" {
		http.Error(w, "Certificate file not available", http.StatusNotFound)
		return
	}

	f, err := services.Certificates.Open(rec.Certificate.File)
	if err != nil {
		slog.Error("certificate_event", "event", "file_missing", "certificate_id", id, "file", rec.Certificate.File, "error", err)
		http.Error(w, "Certificate file not available", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		internalError(w, err)
		return
	}

	name := rec.Certificate.Number + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	slog.Info("certificate_event", "event", "downloaded", "certificate_id", id, "account_id", sess.AccountID)
	http.ServeContent(w, r, name, info.ModTime(), f)
}
