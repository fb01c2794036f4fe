package web

import (
	"database/sql"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"

	"frsm/internal/adapters/http/middleware"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/application/listutil"
	"frsm/internal/application/orchestrators"
	"frsm/internal/application/projections"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/volunteer"
)

// expiryFilters are the accepted values of the expiry page filter.
var expiryFilters = []string{
	certificate.ExpiryExpired,
	certificate.ExpiryWithin30,
	certificate.ExpiryWithin60,
	certificate.ExpiryWithin90,
	certificate.ExpiryValid,
}

type assignForm struct {
	TrainingID   string   `validate:"max=64"`
	VolunteerIDs []string `validate:"max=500,dive,required,max=64"`
}

type registrationForm struct {
	RegistrationID string `validate:"required,max=64"`
}

// certificateSequence draws a candidate certificate number suffix.
func certificateSequence() int {
	return rand.IntN(9999) + 1
}

// handleAdminAssign handles GET (page) and POST (assign) for /admin/training/assign.
func handleAdminAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := middleware.GetSessionFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		page, err := projections.QueryAssignPage(ctx, today(), projections.AssignPageDeps{
			Trainings:     stores.TrainingStore,
			Registrations: stores.RegistrationStore,
			Volunteers:    stores.VolunteerStore,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		data := pageData(r, "Assign Training")
		data["Page"] = page
		renderTemplate(w, r, "admin_assign.html", data)

	case http.MethodPost:
		var form assignForm
		if !decodeForm(w, r, &form, func() {
			form.TrainingID = r.FormValue("training_id")
			form.VolunteerIDs = r.Form["volunteer_ids"]
		}) {
			return
		}
		res, err := orchestrators.ExecuteAssignTraining(ctx, orchestrators.AssignTrainingInput{
			AdminID:      sess.AccountID,
			TrainingID:   form.TrainingID,
			VolunteerIDs: form.VolunteerIDs,
		}, orchestrators.AssignTrainingDeps{RunInTx: stores.RunInTx, GenerateID: generateID, Now: timeNow})
		redirectResult(w, r, "/admin/training/assign", err, res.Message())

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAdminApprovals renders GET /admin/training/approvals.
func handleAdminApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	res, err := projections.QueryPendingApprovals(r.Context(), projections.PendingApprovalsQuery{
		TrainingID: q.Get("training_id"),
		Search:     q.Get("search"),
	}, projections.PendingApprovalsDeps{Trainings: stores.TrainingStore, Registrations: stores.RegistrationStore})
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Approve Completions")
	data["Approvals"] = res
	data["TrainingID"] = q.Get("training_id")
	data["Search"] = q.Get("search")
	renderTemplate(w, r, "admin_approvals.html", data)
}

// handleAdminApprove handles POST /admin/training/approve: approve a verified completion
// and issue its certificate.
func handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form registrationForm
	if !decodeForm(w, r, &form, func() { form.RegistrationID = r.FormValue("registration_id") }) {
		return
	}
	_, err := orchestrators.ExecuteApproveCompletion(r.Context(), orchestrators.CompletionDecisionInput{
		AdminID:        sess.AccountID,
		RegistrationID: form.RegistrationID,
	}, orchestrators.ApproveCompletionDeps{
		RunInTx:    stores.RunInTx,
		Writer:     services.Certificates,
		GenerateID: generateID,
		Sequence:   certificateSequence,
		Now:        timeNow,
	})
	redirectResult(w, r, "/admin/training/approvals", err, orchestrators.MsgApproved)
}

// handleAdminReject handles POST /admin/training/reject.
func handleAdminReject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var form registrationForm
	if !decodeForm(w, r, &form, func() { form.RegistrationID = r.FormValue("registration_id") }) {
		return
	}
	err := orchestrators.ExecuteRejectCompletion(r.Context(), orchestrators.CompletionDecisionInput{
		AdminID:        sess.AccountID,
		RegistrationID: form.RegistrationID,
	}, orchestrators.RejectCompletionDeps{RunInTx: stores.RunInTx, GenerateID: generateID, Now: timeNow})
	redirectResult(w, r, "/admin/training/approvals", err, orchestrators.MsgRejected)
}

// handleAdminExpiry renders GET /admin/training/expiry.
func handleAdminExpiry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()
	filter := q.Get("filter")
	if !slices.Contains(expiryFilters, filter) {
		filter = ""
	}
	res, err := projections.QueryExpiryTracking(ctx, projections.ExpiryTrackingQuery{
		Filter:      filter,
		VolunteerID: q.Get("volunteer_id"),
		TrainingID:  q.Get("training_id"),
		Search:      q.Get("search"),
		Today:       today(),
	}, projections.ExpiryTrackingDeps{Certificates: stores.CertificateStore})
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Certificate Expiry")
	data["Expiry"] = res
	data["Filter"] = filter
	data["Filters"] = expiryFilters
	data["Query"] = q
	if !addFilterOptions(w, r, data) {
		return
	}
	renderTemplate(w, r, "admin_expiry.html", data)
}

// handleAdminRecords renders GET /admin/training/records.
func handleAdminRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()
	status := q.Get("status")
	if !slices.Contains(projections.RecordStatusFilters, status) {
		status = ""
	}
	res, err := projections.QueryTrainingRecords(ctx, projections.TrainingRecordsQuery{
		Status:      status,
		VolunteerID: q.Get("volunteer_id"),
		TrainingID:  q.Get("training_id"),
		Search:      q.Get("search"),
		Page:        listutil.ParsePageParams(q),
	}, projections.TrainingRecordsDeps{Registrations: stores.RegistrationStore})
	if err != nil {
		internalError(w, err)
		return
	}
	data := pageData(r, "Training Records")
	data["Records"] = res
	data["Status"] = status
	data["Statuses"] = projections.RecordStatusFilters
	data["Query"] = q
	data["PageQuery"] = withoutPage(q)
	if !addFilterOptions(w, r, data) {
		return
	}
	renderTemplate(w, r, "admin_records.html", data)
}

// addFilterOptions adds the volunteer and training dropdown options to data.
// Returns false after writing an error response.
func addFilterOptions(w http.ResponseWriter, r *http.Request, data map[string]any) bool {
	vols, err := stores.VolunteerStore.List(r.Context(), volunteerStore.ListFilter{ApplicationStatus: volunteer.ApplicationApproved})
	if err != nil {
		internalError(w, err)
		return false
	}
	trainings, err := stores.TrainingStore.List(r.Context(), trainingStore.ListFilter{})
	if err != nil {
		internalError(w, err)
		return false
	}
	data["VolunteerOptions"] = vols
	data["TrainingOptions"] = trainings
	return true
}

func withoutPage(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		if k != "page" && k != "success" && k != "error" {
			out[k] = v
		}
	}
	return out
}

// handleAdminRecordDetail serves GET /admin/training/records/detail?id= as JSON.
func handleAdminRecordDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Registration ID is required"})
		return
	}
	detail, err := projections.QueryRegistrationDetail(r.Context(), id, stores.RegistrationStore)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Registration not found"})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleCertificateDetail serves GET /admin/certificates/detail?id= as JSON.
func handleCertificateDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Certificate ID is required"})
		return
	}
	detail, err := projections.QueryCertificateDetail(r.Context(), id,
		projections.Viewer{AccountID: sess.AccountID, Role: sess.Role}, today(), stores.CertificateStore)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Certificate not found"})
	case errors.Is(err, projections.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Access denied"})
	case err != nil:
		internalError(w, err)
	default:
		writeJSON(w, http.StatusOK, detail)
	}
}
