package web

import (
	"errors"
	"net/http"

	"frsm/internal/adapters/http/middleware"
	notificationStore "frsm/internal/adapters/storage/notification"
	"frsm/internal/application/projections"
)

// handleNotifications renders GET /notifications for the current user.
func handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	res, err := projections.QueryNotifications(r.Context(), sess.AccountID, stores.NotificationStore)
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Notifications")
	data["Notifications"] = res
	renderTemplate(w, r, "notifications.html", data)
}

// handleNotificationsRead handles POST /notifications/read. With id set one notification is
// marked read; with all=1 every notification of the user.
func handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	var err error
	switch id := r.FormValue("id"); {
	case r.FormValue("all") == "1":
		err = stores.NotificationStore.MarkAllRead(r.Context(), sess.AccountID)
	case id != "":
		err = stores.NotificationStore.MarkRead(r.Context(), sess.AccountID, id)
	default:
		http.Error(w, "id or all is required", http.StatusBadRequest)
		return
	}
	if err != nil && !errors.Is(err, notificationStore.ErrNotFound) {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
