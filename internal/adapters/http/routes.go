package web

import (
	"net/http"

	"frsm/internal/adapters/http/middleware"
	accountDomain "frsm/internal/domain/account"
)

var (
	adminOnly     = middleware.RequireRole(accountDomain.RoleAdmin)
	staffOnly     = middleware.RequireRole(accountDomain.RoleEmployee, accountDomain.RoleAdmin)
	volunteerOnly = middleware.RequireRole(accountDomain.RoleUser)
)

// registerRoutes mounts every page, form action and fragment on mux.
func registerRoutes(mux *http.ServeMux) {
	handle := func(pattern string, guard func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, guard(h))
	}

	mux.HandleFunc("/", handleHome)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.Handle("/change-password", middleware.RequireAuth(http.HandlerFunc(handleChangePassword)))

	// Admin
	handle("/admin/training/assign", adminOnly, handleAdminAssign)
	handle("/admin/training/approvals", adminOnly, handleAdminApprovals)
	handle("/admin/training/approve", adminOnly, handleAdminApprove)
	handle("/admin/training/reject", adminOnly, handleAdminReject)
	handle("/admin/training/expiry", adminOnly, handleAdminExpiry)
	handle("/admin/training/records", adminOnly, handleAdminRecords)
	handle("/admin/training/records/detail", adminOnly, handleAdminRecordDetail)
	handle("/admin/certificates/detail", adminOnly, handleCertificateDetail)
	handle("/admin/outbox", adminOnly, handleAdminOutbox)
	handle("/admin/outbox/{id}/{action}", adminOnly, handleAdminOutboxAction)
	handle("/admin/perf", adminOnly, handleAdminPerf)

	// Employee
	handle("/employee/trainings", staffOnly, handleEmployeeTrainings)
	handle("/employee/trainings/sync", staffOnly, handleEmployeeSync)
	handle("/employee/trainings/submit", staffOnly, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handleEmployeeSubmit(w, r)
			return
		}
		handleEmployeeSubmitPage(w, r)
	})
	handle("/employee/trainings/verify", staffOnly, handleEmployeeVerify)
	handle("/proofs", staffOnly, handleProof)

	// Volunteer
	handle("/volunteer/trainings", volunteerOnly, handleVolunteerTrainings)
	handle("/volunteer/trainings/register", volunteerOnly, handleVolunteerRegister)
	handle("/volunteer/trainings/cancel", volunteerOnly, handleVolunteerCancel)
	handle("/volunteer/trainings/complete", volunteerOnly, handleVolunteerComplete)
	handle("/volunteer/certificates", volunteerOnly, handleVolunteerCertificates)
	handle("/volunteer/records", volunteerOnly, handleVolunteerRecords)

	// Any signed-in role; handlers check ownership or role themselves.
	handle("/certificates/download", middleware.RequireAuth, handleCertificateDownload)
	handle("/notifications", middleware.RequireAuth, handleNotifications)
	handle("/notifications/read", middleware.RequireAuth, handleNotificationsRead)
	handle("/fragments/training-volunteers", middleware.RequireAuth, handleTrainingVolunteersFragment)
	handle("/fragments/training-participants", middleware.RequireAuth, handleTrainingParticipantsFragment)
}
