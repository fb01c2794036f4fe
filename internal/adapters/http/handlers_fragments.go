package web

import (
	"net/http"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/application/projections"
	accountDomain "frsm/internal/domain/account"
)

// fragmentAccess checks the caller's role and the training_id parameter.
// Returns the training id, or "" after writing a 403 or 400 response.
func fragmentAccess(w http.ResponseWriter, r *http.Request, roles ...string) string {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return ""
	}
	if !middleware.IsRole(r.Context(), roles...) {
		http.Error(w, "Access denied", http.StatusForbidden)
		return ""
	}
	id := r.URL.Query().Get("training_id")
	if id == "" {
		http.Error(w, "Training ID is required", http.StatusBadRequest)
		return ""
	}
	return id
}

// handleTrainingVolunteersFragment renders the volunteers who completed a training
// for the employee verification modal.
func handleTrainingVolunteersFragment(w http.ResponseWriter, r *http.Request) {
	id := fragmentAccess(w, r, accountDomain.RoleEmployee, accountDomain.RoleAdmin)
	if id == "" {
		return
	}
	vols, err := projections.QueryTrainingVolunteers(r.Context(), id, stores.RegistrationStore)
	if err != nil {
		internalError(w, err)
		return
	}
	renderFragment(w, "fragment_training_volunteers.html", map[string]any{
		"TrainingID": id,
		"Volunteers": vols,
	})
}

// handleTrainingParticipantsFragment renders the participant list of a training with labels.
func handleTrainingParticipantsFragment(w http.ResponseWriter, r *http.Request) {
	id := fragmentAccess(w, r, accountDomain.RoleEmployee, accountDomain.RoleAdmin, accountDomain.RoleUser)
	if id == "" {
		return
	}
	participants, err := projections.QueryTrainingParticipants(r.Context(), id, stores.RegistrationStore)
	if err != nil {
		internalError(w, err)
		return
	}
	renderFragment(w, "fragment_training_participants.html", map[string]any{
		"TrainingID":   id,
		"Participants": participants,
	})
}
