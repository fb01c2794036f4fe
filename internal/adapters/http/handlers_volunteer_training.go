package web

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/application/orchestrators"
	"frsm/internal/application/projections"
	"frsm/internal/domain/registration"
)

func volunteerViewDeps() projections.VolunteerViewDeps {
	return projections.VolunteerViewDeps{
		Volunteers:    stores.VolunteerStore,
		Trainings:     stores.TrainingStore,
		Registrations: stores.RegistrationStore,
		Certificates:  stores.CertificateStore,
	}
}

func volunteerTrainingDeps() orchestrators.VolunteerTrainingDeps {
	return orchestrators.VolunteerTrainingDeps{RunInTx: stores.RunInTx, GenerateID: generateID, Now: timeNow}
}

// refreshStatuses brings training and registration statuses up to date before a volunteer
// sees or changes them. Failures are logged; the page still renders.
func refreshStatuses(ctx context.Context) {
	_, err := orchestrators.ExecuteRefreshTrainingStatuses(ctx, orchestrators.RefreshTrainingStatusesDeps{
		RunInTx: stores.RunInTx,
		Now:     timeNow,
	})
	if err != nil {
		slog.Error("training_event", "event", "status_refresh_failed", "error", err)
	}
}

// renderNoProfile shows a volunteer page without data when the account has no volunteer record.
func renderNoProfile(w http.ResponseWriter, r *http.Request, templateName, title string) {
	data := pageData(r, title)
	data["Error"] = orchestrators.MsgNoVolunteerRecord
	data["NoProfile"] = true
	renderTemplate(w, r, templateName, data)
}

// handleVolunteerTrainings renders GET /volunteer/trainings.
func handleVolunteerTrainings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	sess, _ := middleware.GetSessionFromContext(ctx)
	refreshStatuses(ctx)

	completion := r.URL.Query().Get("completion")
	switch completion {
	case registration.CompletionNotStarted, registration.CompletionInProgress,
		registration.CompletionCompleted, registration.CompletionFailed:
	default:
		completion = ""
	}

	res, err := projections.QueryVolunteerTrainings(ctx, projections.VolunteerTrainingsQuery{
		UserID:     sess.AccountID,
		Completion: completion,
		Today:      today(),
	}, volunteerViewDeps())
	if errors.Is(err, sql.ErrNoRows) {
		renderNoProfile(w, r, "volunteer_trainings.html", "My Trainings")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "My Trainings")
	data["View"] = res
	data["Completion"] = completion
	renderTemplate(w, r, "volunteer_trainings.html", data)
}

// handleVolunteerRegister handles POST /volunteer/trainings/register.
func handleVolunteerRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form trainingForm
	if !decodeForm(w, r, &form, func() { form.TrainingID = r.FormValue("training_id") }) {
		return
	}
	refreshStatuses(r.Context())
	_, err := orchestrators.ExecuteRegisterForTraining(r.Context(), orchestrators.VolunteerTrainingInput{
		UserID:     sess.AccountID,
		TrainingID: form.TrainingID,
	}, volunteerTrainingDeps())
	redirectResult(w, r, "/volunteer/trainings", err, orchestrators.MsgRegistered)
}

// handleVolunteerCancel handles POST /volunteer/trainings/cancel.
func handleVolunteerCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form registrationForm
	if !decodeForm(w, r, &form, func() { form.RegistrationID = r.FormValue("registration_id") }) {
		return
	}
	refreshStatuses(r.Context())
	err := orchestrators.ExecuteCancelRegistration(r.Context(), orchestrators.VolunteerTrainingInput{
		UserID:         sess.AccountID,
		RegistrationID: form.RegistrationID,
	}, volunteerTrainingDeps())
	redirectResult(w, r, "/volunteer/trainings", err, orchestrators.MsgCancelled)
}

// handleVolunteerComplete handles POST /volunteer/trainings/complete.
func handleVolunteerComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form registrationForm
	if !decodeForm(w, r, &form, func() { form.RegistrationID = r.FormValue("registration_id") }) {
		return
	}
	refreshStatuses(r.Context())
	err := orchestrators.ExecuteMarkTrainingCompleted(r.Context(), orchestrators.VolunteerTrainingInput{
		UserID:         sess.AccountID,
		RegistrationID: form.RegistrationID,
	}, volunteerTrainingDeps())
	redirectResult(w, r, "/volunteer/trainings", err, orchestrators.MsgMarkedCompleted)
}

// handleVolunteerCertificates renders GET /volunteer/certificates.
func handleVolunteerCertificates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	res, err := projections.QueryCertificationStatus(r.Context(), projections.CertificationStatusQuery{
		UserID: sess.AccountID,
		Today:  today(),
	}, volunteerViewDeps())
	if errors.Is(err, sql.ErrNoRows) {
		renderNoProfile(w, r, "volunteer_certificates.html", "My Certifications")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "My Certifications")
	data["View"] = res
	renderTemplate(w, r, "volunteer_certificates.html", data)
}

// handleVolunteerRecords renders GET /volunteer/records.
func handleVolunteerRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	res, err := projections.QueryVolunteerRecords(r.Context(), sess.AccountID, today(), volunteerViewDeps())
	if errors.Is(err, sql.ErrNoRows) {
		renderNoProfile(w, r, "volunteer_records.html", "My Training Records")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "My Training Records")
	data["View"] = res
	renderTemplate(w, r, "volunteer_records.html", data)
}
