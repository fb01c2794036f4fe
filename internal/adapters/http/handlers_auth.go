package web

import (
	"errors"
	"net/http"

	"frsm/internal/adapters/http/middleware"
	"frsm/internal/application/orchestrators"
	accountDomain "frsm/internal/domain/account"
)

type loginForm struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=200"`
}

type changePasswordForm struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=12,max=200"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword"`
}

// homeFor is the landing page of a role.
func homeFor(role string) string {
	switch role {
	case accountDomain.RoleAdmin:
		return "/admin/training/approvals"
	case accountDomain.RoleEmployee:
		return "/employee/trainings"
	}
	return "/volunteer/trainings"
}

// handleHome sends logged-in users to their landing page and everyone else to /login.
func handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, homeFor(sess.Role), http.StatusSeeOther)
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, homeFor(sess.Role), http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", pageData(r, "Sign in"))

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		form := loginForm{Email: r.FormValue("email"), Password: r.FormValue("password")}
		fail := func(msg string) {
			data := pageData(r, "Sign in")
			data["Error"] = msg
			data["Email"] = form.Email
			renderTemplate(w, r, "login.html", data)
		}
		if err := formValidator.Struct(form); err != nil {
			fail("Please enter your e-mail address and password.")
			return
		}

		result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
			Email:    form.Email,
			Password: form.Password,
		}, orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow})
		if errors.Is(err, orchestrators.ErrInvalidCredentials) || errors.Is(err, orchestrators.ErrAccountLocked) {
			fail(err.Error())
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.DisplayName)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, homeFor(result.Role), http.StatusSeeOther)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleChangePassword handles GET (form) and POST (update) for /change-password.
// A successful change ends every session of the account.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		renderTemplate(w, r, "change_password.html", pageData(r, "Change password"))

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		form := changePasswordForm{
			CurrentPassword: r.FormValue("current_password"),
			NewPassword:     r.FormValue("new_password"),
			ConfirmPassword: r.FormValue("confirm_password"),
		}
		if err := formValidator.Struct(form); err != nil {
			redirectError(w, r, "/change-password", "New password must be at least 12 characters and match the confirmation.")
			return
		}
		err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
			AccountID:       sess.AccountID,
			CurrentPassword: form.CurrentPassword,
			NewPassword:     form.NewPassword,
		}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore})
		if err != nil {
			redirectResult(w, r, "/change-password", err, "")
			return
		}
		sessions.DeleteAccount(sess.AccountID)
		middleware.ClearSessionCookie(w)
		redirectSuccess(w, r, "/login", "Password changed. Please sign in again.")

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
