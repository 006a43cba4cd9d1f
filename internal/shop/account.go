// ABOUTME: Account endpoints: sign-up, sign-in, sign-out and the current user
// ABOUTME: Delegates credential checks to auth.Service and sets the session cookie

package shop

import (
	"errors"
	"net/http"
	"time"

	"github.com/2389/storefront/internal/auth"
)

// SignUpRequest is the JSON body for POST /api/auth/signup.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the JSON body for POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful sign-up or sign-in.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt string       `json:"expires_at"`
}

func (s *Shop) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		s.sendJSONError(w, http.StatusConflict, auth.ErrDuplicateEmail.Error())
		return
	default:
		s.sendInternalError(w, "sign-up failed", err)
		return
	}

	s.auth.StartSession(w, res)
	s.sendJSON(w, http.StatusCreated, sessionResponse(res))
}

func (s *Shop) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.Info("sign-in failed")
		s.sendJSONError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	default:
		s.sendInternalError(w, "sign-in failed", err)
		return
	}

	s.auth.StartSession(w, res)
	s.sendJSON(w, http.StatusOK, sessionResponse(res))
}

func (s *Shop) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Shop) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := currentClaims(r)
	s.sendJSON(w, http.StatusOK, userResponse(claims))
}

func sessionResponse(res *auth.Result) SessionResponse {
	return SessionResponse{
		User:      userResponse(res.Claims),
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
