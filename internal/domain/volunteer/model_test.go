package volunteer_test

import (
	"testing"
	"time"

	"frsm/internal/domain/volunteer"
)

func TestVolunteer_Validate(t *testing.T) {
	base := volunteer.Volunteer{
		FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com",
		Status: volunteer.StatusNew, ApplicationStatus: volunteer.ApplicationApproved,
	}
	tests := []struct {
		name    string
		mutate  func(v *volunteer.Volunteer)
		wantErr bool
	}{
		{"valid", func(v *volunteer.Volunteer) {}, false},
		{"no first name", func(v *volunteer.Volunteer) { v.FirstName = "" }, true},
		{"no last name", func(v *volunteer.Volunteer) { v.LastName = " " }, true},
		{"bad email", func(v *volunteer.Volunteer) { v.Email = "ana" }, true},
		{"bad status", func(v *volunteer.Volunteer) { v.Status = "Retired" }, true},
		{"bad application", func(v *volunteer.Volunteer) { v.ApplicationStatus = "maybe" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base
			tt.mutate(&v)
			if err := v.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVolunteer_FullName(t *testing.T) {
	v := volunteer.Volunteer{FirstName: "Juan", MiddleName: "Santos", LastName: "Cruz"}
	if got := v.FullName(); got != "Juan Santos Cruz" {
		t.Errorf("FullName() = %q", got)
	}
	v.MiddleName = ""
	if got := v.FullName(); got != "Juan Cruz" {
		t.Errorf("FullName() without middle = %q", got)
	}
}

// TestVolunteer_Certify tests promotion on first certificate.
func TestVolunteer_Certify(t *testing.T) {
	now := time.Date(2026, 7, 1, 15, 4, 0, 0, time.UTC)

	t.Run("new volunteer is promoted", func(t *testing.T) {
		v := volunteer.Volunteer{Status: volunteer.StatusNew}
		if !v.Certify(now) {
			t.Fatal("expected promotion")
		}
		if v.Status != volunteer.StatusActive || v.TrainingCompletionStatus != volunteer.TrainingCertified {
			t.Errorf("unexpected state: %+v", v)
		}
		if v.ActiveSince.Format("2006-01-02") != "2026-07-01" || !v.FirstTrainingCompletedAt.Equal(now) {
			t.Errorf("dates not recorded: %+v", v)
		}
	})

	t.Run("inactive volunteer stays inactive", func(t *testing.T) {
		v := volunteer.Volunteer{Status: volunteer.StatusInactive}
		if v.Certify(now) {
			t.Error("inactive volunteers are not promoted")
		}
		if v.Status != volunteer.StatusInactive || v.TrainingCompletionStatus != volunteer.TrainingCertified {
			t.Errorf("unexpected state: %+v", v)
		}
	})
}
