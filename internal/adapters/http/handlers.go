package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/adapters/proofstore"
	"frsm/internal/application/orchestrators"
	accountDomain "frsm/internal/domain/account"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/training"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// today is the current calendar date.
func today() time.Time {
	return training.DateOf(timeNow())
}

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// formValidator checks decoded form structs.
var formValidator = validator.New()

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// userFacing are the errors whose message is shown to the user as-is.
var userFacing = []error{
	training.ErrNotOpen,
	training.ErrFull,
	registration.ErrAlreadyRegistered,
	registration.ErrCannotCancel,
	registration.ErrAlreadyCancelled,
	registration.ErrNotFinished,
	registration.ErrAlreadyCompleted,
	registration.ErrNotCompleted,
	registration.ErrNotVerified,
	registration.ErrAlreadySubmitted,
	registration.ErrAlreadyCertified,
	registration.ErrNotOwner,
	orchestrators.ErrRegistrationNotFound,
	orchestrators.ErrNoVolunteersSelected,
	orchestrators.ErrNoTrainingSelected,
	orchestrators.ErrTrainingNotFound,
	orchestrators.ErrNothingToSubmit,
	orchestrators.ErrNoVolunteerProfile,
	orchestrators.ErrCurrentPasswordWrong,
	orchestrators.ErrNewPasswordSame,
	accountDomain.ErrPasswordTooShort,
	proofstore.ErrTooLarge,
	proofstore.ErrInvalidType,
	proofstore.ErrEmpty,
}

// userMessage returns the message to flash for err, or false when err is internal.
func userMessage(err error) (string, bool) {
	var slots orchestrators.ErrNotEnoughSlots
	if errors.As(err, &slots) {
		return slots.Error(), true
	}
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

// redirectSuccess sends the browser back to path with a success flash.
func redirectSuccess(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withQuery(path, "success", msg), http.StatusSeeOther)
}

// redirectError sends the browser back to path with an error flash.
func redirectError(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withQuery(path, "error", msg), http.StatusSeeOther)
}

// redirectResult flashes err when it is user-facing, reports internal errors,
// and flashes success otherwise.
func redirectResult(w http.ResponseWriter, r *http.Request, path string, err error, success string) {
	if err == nil {
		redirectSuccess(w, r, path, success)
		return
	}
	if msg, ok := userMessage(err); ok {
		redirectError(w, r, path, msg)
		return
	}
	internalError(w, err)
}

func withQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + url.QueryEscape(value)
}

// decodeForm parses the request form, fills dst via fill and validates it.
// Returns false after writing a 400 response.
func decodeForm(w http.ResponseWriter, r *http.Request, dst any, fill func()) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return false
	}
	fill()
	if err := formValidator.Struct(dst); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return false
	}
	return true
}

// pageData starts the template data of a page with its title and flash messages.
func pageData(r *http.Request, title string) map[string]any {
	q := r.URL.Query()
	return map[string]any{
		"Title":   title,
		"Success": q.Get("success"),
		"Error":   q.Get("error"),
	}
}

// templatesDir holds layout.html and the page templates. Tests point it at "templates".
var templatesDir = "internal/adapters/http/templates"

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	unread := 0
	if loggedIn && stores != nil && stores.NotificationStore != nil {
		if n, err := stores.NotificationStore.CountUnread(r.Context(), sess.AccountID); err == nil {
			unread = n
		}
	}

	funcMap := template.FuncMap{
		"currentRole": func() string { return sess.Role },
		"currentName": func() string { return sess.DisplayName },
		"isLoggedIn":  func() bool { return loggedIn },
		"isStaff":     func() bool { return loggedIn && sess.IsStaff() },
		"isAdmin":     func() bool { return loggedIn && sess.Role == accountDomain.RoleAdmin },
		"unreadCount": func() int { return unread },
		"csrfField":   func() template.HTML { return csrf.TemplateField(r) },
		"markdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"date":     formatDate,
		"dateTime": formatDateTime,
		"humanize": humanize,
		"hours":    func(h float64) string { return strings.TrimSuffix(fmt.Sprintf("%.1f", h), ".0") },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"abs": func(n int) int {
			if n < 0 {
				return -n
			}
			return n
		},
		"pageQuery": func(page int, extra url.Values) template.URL {
			q := url.Values{}
			for k, v := range extra {
				q[k] = v
			}
			q.Set("page", fmt.Sprint(page))
			return template.URL(q.Encode())
		},
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	pagePath := filepath.Join(templatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		internalError(w, fmt.Errorf("parse template %s: %w", templateName, err))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render template %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// renderFragment renders a template without the layout, for pages that load it into a modal.
func renderFragment(w http.ResponseWriter, templateName string, data any) {
	funcMap := template.FuncMap{
		"date":     formatDate,
		"humanize": humanize,
	}
	tpl, err := template.New(templateName).Funcs(funcMap).ParseFiles(filepath.Join(templatesDir, templateName))
	if err != nil {
		internalError(w, fmt.Errorf("parse fragment %s: %w", templateName, err))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render fragment %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// humanize turns a status code such as "in_progress" into "In Progress".
func humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
