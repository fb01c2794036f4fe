package training

import (
	"errors"
	"strings"
	"time"
)

// Status constants
const (
	StatusScheduled = "scheduled"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatuses contains all valid training statuses.
var ValidStatuses = []string{StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled}

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 10000
)

// DateLayout is the storage and form layout for training dates.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyTitle      = errors.New("training title cannot be empty")
	ErrTitleTooLong    = errors.New("training title cannot exceed 200 characters")
	ErrMissingDate     = errors.New("training date is required")
	ErrEndBeforeStart  = errors.New("training end date cannot be before the start date")
	ErrInvalidStatus   = errors.New("invalid training status")
	ErrNegativeLimit   = errors.New("max participants cannot be negative")
	ErrNotOpen         = errors.New("Training not found or not available for registration.")
	ErrFull            = errors.New("This training is already full. Please try another training.")
	ErrDescriptionSize = errors.New("training description cannot exceed 10000 characters")
)

// Training is a scheduled instructional event volunteers register for.
// MaxParticipants of 0 means the training has no capacity limit.
type Training struct {
	ID                  string
	ExternalID          string
	Title               string
	Description         string // markdown
	Date                time.Time
	EndDate             time.Time // zero when single-day or open-ended
	DurationHours       float64
	Instructor          string
	Location            string
	MaxParticipants     int
	CurrentParticipants int
	Status              string
	LastSyncAt          time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// Validate checks if the Training has valid data.
// PRE: Training struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Training) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionSize
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.Date) {
		return ErrEndBeforeStart
	}
	if t.MaxParticipants < 0 {
		return ErrNegativeLimit
	}
	if !IsValidStatus(t.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidStatus reports whether s is a known training status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether volunteers may register (scheduled or ongoing).
// INVARIANT: Training fields are not mutated
func (t *Training) IsOpen() bool {
	return t.Status == StatusScheduled || t.Status == StatusOngoing
}

// IsFull reports whether a capacity-limited training has no slots left.
// INVARIANT: Training fields are not mutated
func (t *Training) IsFull() bool {
	return t.MaxParticipants > 0 && t.CurrentParticipants >= t.MaxParticipants
}

// AvailableSlots returns the free slots, or -1 when unlimited.
// INVARIANT: Training fields are not mutated
func (t *Training) AvailableSlots() int {
	if t.MaxParticipants <= 0 {
		return -1
	}
	slots := t.MaxParticipants - t.CurrentParticipants
	if slots < 0 {
		return 0
	}
	return slots
}

// HasStarted reports whether the training date is on or before today.
// INVARIANT: Training fields are not mutated
func (t *Training) HasStarted(today time.Time) bool {
	return !DateOf(t.Date).After(DateOf(today))
}

// HasEnded reports whether the training is over: today is after the end date,
// or after the start date for trainings without an end.
// INVARIANT: Training fields are not mutated
func (t *Training) HasEnded(today time.Time) bool {
	last := t.Date
	if !t.EndDate.IsZero() {
		last = t.EndDate
	}
	return DateOf(today).After(DateOf(last))
}

// IsUpcomingOrRunning reports whether the training has not finished by today.
// INVARIANT: Training fields are not mutated
func (t *Training) IsUpcomingOrRunning(today time.Time) bool {
	d := DateOf(today)
	if !DateOf(t.Date).Before(d) {
		return true
	}
	return !t.EndDate.IsZero() && !DateOf(t.EndDate).Before(d)
}

// NextStatus returns the status the training should have on the given day.
// Scheduled trainings start on their first day; trainings finish the day after
// their end date, or the day after their start when they have no end date.
// Cancelled and completed trainings never change.
// INVARIANT: Training fields are not mutated
func (t *Training) NextStatus(today time.Time) string {
	d := DateOf(today)
	start := DateOf(t.Date)
	hasEnd := !t.EndDate.IsZero()
	end := DateOf(t.EndDate)

	switch t.Status {
	case StatusScheduled:
		if hasEnd && end.Before(d) {
			return StatusCompleted
		}
		if !hasEnd && start.Before(d) {
			return StatusCompleted
		}
		if !start.After(d) && (!hasEnd || !end.Before(d)) {
			return StatusOngoing
		}
	case StatusOngoing:
		if hasEnd && end.Before(d) {
			return StatusCompleted
		}
		if !hasEnd && start.Before(d) {
			return StatusCompleted
		}
	}
	return t.Status
}

// Reserve takes n participant slots.
// PRE: Training is open
// POST: CurrentParticipants increased by n, or ErrFull if the limit would be exceeded
func (t *Training) Reserve(n int) error {
	if !t.IsOpen() {
		return ErrNotOpen
	}
	if t.MaxParticipants > 0 && t.CurrentParticipants+n > t.MaxParticipants {
		return ErrFull
	}
	t.CurrentParticipants += n
	return nil
}

// Release frees one participant slot, never going below zero.
// POST: CurrentParticipants decreased by one, floor 0
func (t *Training) Release() {
	if t.CurrentParticipants > 0 {
		t.CurrentParticipants--
	}
}

// EffectiveEnd returns the end date, falling back to the start date.
func (t *Training) EffectiveEnd() time.Time {
	if t.EndDate.IsZero() {
		return t.Date
	}
	return t.EndDate
}
