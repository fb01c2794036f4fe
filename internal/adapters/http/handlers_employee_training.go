package web

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/adapters/proofstore"
	"frsm/internal/application/orchestrators"
	"frsm/internal/application/projections"
	"frsm/internal/domain/training"
)

type verifyForm struct {
	RegistrationID string `validate:"required,max=64"`
	TrainingID     string `validate:"max=64"`
	Notes          string `validate:"max=2000"`
}

type trainingForm struct {
	TrainingID string `validate:"required,max=64"`
}

// handleEmployeeTrainings renders GET /employee/trainings.
func handleEmployeeTrainings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	status := q.Get("status")
	if !training.IsValidStatus(status) {
		status = ""
	}
	res, err := projections.QueryEmployeeTrainings(r.Context(), projections.EmployeeTrainingsQuery{
		Status: status,
		Search: q.Get("search"),
	}, projections.EmployeeTrainingsDeps{Trainings: stores.TrainingStore, Registrations: stores.RegistrationStore})
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Available Trainings")
	data["Trainings"] = res
	data["Status"] = status
	data["Statuses"] = training.ValidStatuses
	data["Search"] = q.Get("search")
	data["SyncEnabled"] = services != nil && services.Sync != nil
	renderTemplate(w, r, "employee_trainings.html", data)
}

// handleEmployeeSync handles POST /employee/trainings/sync: pull the external catalogue now.
func handleEmployeeSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if services == nil || services.Sync == nil {
		redirectError(w, r, "/employee/trainings", "Training sync is not configured.")
		return
	}
	res, err := orchestrators.ExecuteSyncTrainings(r.Context(), orchestrators.SyncTrainingsDeps{
		Source:     services.Sync,
		RunInTx:    stores.RunInTx,
		GenerateID: generateID,
		Now:        timeNow,
		SyncLog:    services.SyncLog,
	})
	if err != nil {
		slog.Error("training_event", "event", "sync_failed", "error", err)
		redirectError(w, r, "/employee/trainings", orchestrators.MsgSyncFailed)
		return
	}
	redirectSuccess(w, r, "/employee/trainings", res.Message())
}

// handleEmployeeSubmitPage renders GET /employee/trainings/submit.
func handleEmployeeSubmitPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trainingID := r.URL.Query().Get("training_id")
	res, err := projections.QueryCompletionsToSubmit(r.Context(), trainingID,
		projections.EmployeeTrainingsDeps{Trainings: stores.TrainingStore, Registrations: stores.RegistrationStore})
	if errors.Is(err, sql.ErrNoRows) {
		redirectError(w, r, "/employee/trainings/submit", orchestrators.ErrTrainingNotFound.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Submit Training Completions")
	data["Submit"] = res
	data["TrainingID"] = trainingID
	data["MaxProofMB"] = proofstore.MaxSize >> 20
	renderTemplate(w, r, "employee_submit.html", data)
}

// submitPath returns the submit page, keeping the selected training.
func submitPath(trainingID string) string {
	if trainingID == "" {
		return "/employee/trainings/submit"
	}
	return "/employee/trainings/submit?training_id=" + url.QueryEscape(trainingID)
}

// handleEmployeeVerify handles POST /employee/trainings/verify (multipart, optional "proof" file).
func handleEmployeeVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	if err := r.ParseMultipartForm(proofstore.MaxSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := verifyForm{
		RegistrationID: r.FormValue("registration_id"),
		TrainingID:     r.FormValue("training_id"),
		Notes:          r.FormValue("notes"),
	}
	if err := formValidator.Struct(form); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	back := submitPath(form.TrainingID)

	proofPath := ""
	file, _, err := r.FormFile("proof")
	switch {
	case err == nil:
		defer file.Close()
		proofPath, err = services.Proofs.Save(file, timeNow())
		if err != nil {
			redirectResult(w, r, back, err, "")
			return
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	err = orchestrators.ExecuteVerifyCompletion(r.Context(), orchestrators.VerifyCompletionInput{
		EmployeeID:     sess.AccountID,
		RegistrationID: form.RegistrationID,
		ProofPath:      proofPath,
		Notes:          form.Notes,
	}, orchestrators.VerifyCompletionDeps{RunInTx: stores.RunInTx, Now: timeNow})
	if err != nil && proofPath != "" {
		if rmErr := services.Proofs.Remove(proofPath); rmErr != nil {
			slog.Warn("training_event", "event", "orphan_proof", "file", proofPath, "error", rmErr)
		}
	}
	redirectResult(w, r, back, err, orchestrators.MsgVerified)
}

// handleEmployeeSubmit handles POST /employee/trainings/submit: forward verified completions to admin.
func handleEmployeeSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form trainingForm
	if !decodeForm(w, r, &form, func() { form.TrainingID = r.FormValue("training_id") }) {
		return
	}
	n, err := orchestrators.ExecuteSubmitCompletionsToAdmin(r.Context(), orchestrators.SubmitCompletionsInput{
		EmployeeID: sess.AccountID,
		TrainingID: form.TrainingID,
	}, orchestrators.SubmitCompletionsDeps{RunInTx: stores.RunInTx, GenerateID: generateID, Now: timeNow})
	redirectResult(w, r, submitPath(form.TrainingID), err, orchestrators.SubmittedMessage(n))
}

// handleProof serves GET /proofs?registration_id= to staff: the proof attached at verification.
func handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("registration_id")
	if id == "" {
		http.Error(w, "registration_id is required", http.StatusBadRequest)
		return
	}
	reg, err := stores.RegistrationStore.GetByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && reg.CompletionProof == "") {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	f, err := services.Proofs.Open(reg.CompletionProof)
	if err != nil {
		slog.Warn("training_event", "event", "proof_missing", "registration_id", id, "error", err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(reg.CompletionProof)))
	http.ServeContent(w, r, path.Base(reg.CompletionProof), info.ModTime(), f)
}
