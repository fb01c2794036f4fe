package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Notification types
const (
	TypeTrainingAssigned     = "training_assigned"
	TypeTrainingRegistration = "training_registration"
	TypeTrainingCompletion   = "training_completion"
	TypeTrainingSubmission   = "training_submission"
	TypeCertificateIssued    = "certificate_issued"
	TypeCompletionRejected   = "completion_rejected"
)

// ValidTypes contains all valid notification types.
var ValidTypes = []string{
	TypeTrainingAssigned, TypeTrainingRegistration, TypeTrainingCompletion,
	TypeTrainingSubmission, TypeCertificateIssued, TypeCompletionRejected,
}

// HumanDateLayout renders dates in messages, e.g. "March 5, 2026".
const HumanDateLayout = "January 2, 2006"

// Domain errors
var (
	ErrEmptyUser    = errors.New("notification recipient cannot be empty")
	ErrEmptyTitle   = errors.New("notification title cannot be empty")
	ErrEmptyMessage = errors.New("notification message cannot be empty")
	ErrInvalidType  = errors.New("unknown notification type")
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// Validate checks if the Notification has valid data.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(n.Message) == "" {
		return ErrEmptyMessage
	}
	for _, t := range ValidTypes {
		if t == n.Type {
			return nil
		}
	}
	return ErrInvalidType
}

// MarkRead flags the notification as read.
func (n *Notification) MarkRead() {
	n.IsRead = true
}

// Assigned builds the message sent when an admin assigns a volunteer.
func Assigned(userID, trainingTitle string, start time.Time) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeTrainingAssigned,
		Title:   "Training Assigned",
		Message: fmt.Sprintf("You have been assigned to training: %s. Training starts on: %s", trainingTitle, start.Format(HumanDateLayout)),
	}
}

// Registered builds the message staff receive when a volunteer registers.
func Registered(userID, volunteerName, trainingTitle string) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeTrainingRegistration,
		Title:   "New Training Registration",
		Message: fmt.Sprintf("%s has registered for training: %s", volunteerName, trainingTitle),
	}
}

// Completed builds the message an employee receives when a volunteer marks a training completed.
func Completed(userID, volunteerName, trainingTitle string) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeTrainingCompletion,
		Title:   "Training Completion Reported",
		Message: fmt.Sprintf("%s has marked training %q as completed and awaits verification.", volunteerName, trainingTitle),
	}
}

// Submitted builds the message an admin receives when completions are forwarded.
func Submitted(userID string, count int, trainingTitle string) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeTrainingSubmission,
		Title:   "Training Completion Submitted",
		Message: fmt.Sprintf("Employee has submitted %d verified training completions for %q for certificate approval.", count, trainingTitle),
	}
}

// CertificateIssued builds the message a volunteer receives with their certificate.
func CertificateIssued(userID, trainingTitle, number string) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeCertificateIssued,
		Title:   "Certificate Issued",
		Message: fmt.Sprintf("Your certificate %s for %s has been issued.", number, trainingTitle),
	}
}

// Rejected builds the message a volunteer receives when admin rejects a completion.
func Rejected(userID, trainingTitle string) Notification {
	return Notification{
		UserID:  userID,
		Type:    TypeCompletionRejected,
		Title:   "Training Completion Rejected",
		Message: fmt.Sprintf("Your completion of %s was not approved. Please contact the training office.", trainingTitle),
	}
}
