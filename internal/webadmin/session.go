// ABOUTME: First-run setup and admin login/logout handlers
// ABOUTME: Setup creates the first admin once; login only issues sessions to admins

package webadmin

import (
	"errors"
	"net/http"
	"time"

	"github.com/2389/storefront/internal/auth"
)

// CredentialsRequest is the JSON body for setup and login.
type CredentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after setup or login.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt string       `json:"expires_at"`
	CSRFToken string       `json:"csrf_token"`
}

// SetupStatusResponse is returned by GET /admin/setup.
type SetupStatusResponse struct {
	SetupNeeded bool `json:"setup_needed"`
}

// LoginStatusResponse is returned by GET /admin/login.
type LoginStatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
	CSRFToken     string        `json:"csrf_token"`
}

func claimsResponse(c auth.Claims) UserResponse {
	return UserResponse{ID: c.ID, Name: c.Name, Email: c.Email, IsAdmin: c.IsAdmin}
}

func (a *Admin) startSession(w http.ResponseWriter, r *http.Request, res *auth.Result, status int) {
	a.auth.StartSession(w, res)
	a.sendJSON(w, status, SessionResponse{
		User:      claimsResponse(res.Claims),
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		CSRFToken: a.ensureCSRFToken(w, r),
	})
}

func (a *Admin) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	needed, err := a.auth.IsSetupNeeded(r.Context())
	if err != nil {
		a.sendInternalError(w, "failed to check setup status", err)
		return
	}
	a.sendJSON(w, http.StatusOK, SetupStatusResponse{SetupNeeded: needed})
}

// handleSetup creates the first admin and signs them in. Refused with 409
// once any admin exists.
func (a *Admin) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.Setup(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrSetupComplete):
		a.sendJSONError(w, http.StatusConflict, auth.ErrSetupComplete.Error())
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		a.sendJSONError(w, http.StatusConflict, auth.ErrDuplicateEmail.Error())
		return
	default:
		a.sendInternalError(w, "setup failed", err)
		return
	}

	a.logger.Info("setup completed", "user_id", res.Claims.ID)
	a.startSession(w, r, res, http.StatusCreated)
}

func (a *Admin) handleLoginStatus(w http.ResponseWriter, r *http.Request) {
	resp := LoginStatusResponse{CSRFToken: a.ensureCSRFToken(w, r)}
	if claims, ok := currentAdmin(r); ok && claims.IsAdmin {
		u := claimsResponse(claims)
		resp.Authenticated = true
		resp.User = &u
	}
	a.sendJSON(w, http.StatusOK, resp)
}

// handleLogin signs in an admin. Valid credentials of a non-admin are
// refused without issuing a session.
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		a.logger.Info("admin login failed", "reason", "invalid_credentials")
		a.sendJSONError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	default:
		a.sendInternalError(w, "admin login failed", err)
		return
	}

	if !res.Claims.IsAdmin {
		a.logger.Info("admin login failed", "reason", "not_admin", "user_id", res.Claims.ID)
		a.sendJSONError(w, http.StatusForbidden, "admin role required")
		return
	}

	a.logger.Info("admin login successful", "user_id", res.Claims.ID)
	a.startSession(w, r, res, http.StatusOK)
}

// handleLogout clears the session and CSRF cookies
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Logout is not blocked on CSRF, but a mismatch is worth a warning
	if !a.validateCSRF(r) {
		a.logger.Warn("logout request with invalid CSRF token")
	}
	a.auth.SignOut(w)
	a.clearCSRFToken(w)
	w.WriteHeader(http.StatusNoContent)
}
