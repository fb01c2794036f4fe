package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Column layouts. Timestamps keep nanoseconds; dates are calendar days.
const (
	TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"
	DateLayout = "2006-01-02"
)

// NullableString maps "" to SQL NULL.
func NullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NullableTime maps the zero time to SQL NULL, otherwise a UTC timestamp.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimeLayout)
}

// FormatTime renders a non-null timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullableDate maps the zero time to SQL NULL, otherwise YYYY-MM-DD.
func NullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}

// BoolToInt stores booleans as 0/1.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParseTime parses a timestamp column. NULL or unparseable values yield the zero
// time; parse failures are logged with the column name.
func ParseTime(column string, ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, time.RFC3339, "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	slog.Warn("storage_parse_time_failed", "column", column, "value", ns.String)
	return time.Time{}
}

// ParseDate parses a date column; timestamps are truncated to their day.
func ParseDate(column string, ns sql.NullString) time.Time {
	t := ParseTime(column, ns)
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LikePattern wraps a user search term for a case-insensitive LIKE.
func LikePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(search))) + "%"
}

// Where collects SQL conditions and their arguments.
type Where struct {
	conds []string
	args  []any
}

// Add appends a condition with its arguments.
func (w *Where) Add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// AddIn matches column against any of values. No values adds nothing.
func (w *Where) AddIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	for _, v := range values {
		w.args = append(w.args, v)
	}
	w.conds = append(w.conds, column+" IN (?"+strings.Repeat(", ?", len(values)-1)+")")
}

// AddSearch matches term against any of the given columns, case-insensitively.
func (w *Where) AddSearch(term string, columns ...string) {
	if strings.TrimSpace(term) == "" || len(columns) == 0 {
		return
	}
	pattern := LikePattern(term)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", c)
		w.args = append(w.args, pattern)
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

// SQL returns " WHERE ..." or "" when there are no conditions.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the collected arguments.
func (w *Where) Args() []any {
	return w.args
}
