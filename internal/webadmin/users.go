// ABOUTME: Admin user management handlers
// ABOUTME: Lists, creates, edits and deletes accounts; admins cannot delete or demote themselves

package webadmin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/store"
)

// UserResponse is the admin view of an account. The password hash never leaves the store.
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

// UserListResponse is the body of GET /admin/users.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateUserRequest is the JSON body for POST /admin/users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest is the JSON body for PUT /admin/users/{id}.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"is_admin"`
}

func (a *Admin) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		a.sendInternalError(w, "failed to list users", err)
		return
	}

	total, err := a.store.CountUsers(r.Context())
	if err != nil {
		a.sendInternalError(w, "failed to count users", err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = userResponse(u)
	}
	a.sendJSON(w, http.StatusOK, UserListResponse{Users: resp, Total: total})
}

func (a *Admin) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	email := auth.NormalizeEmail(req.Email)
	for _, err := range []error{auth.ValidateName(name), auth.ValidateEmail(email), auth.ValidatePassword(req.Password)} {
		if err != nil {
			a.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.sendInternalError(w, "failed to hash password", err)
		return
	}

	now := a.config.Now().UTC()
	user := &store.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			a.sendJSONError(w, http.StatusConflict, store.ErrEmailExists.Error())
			return
		}
		a.sendInternalError(w, "failed to create user", err)
		return
	}

	me, _ := currentAdmin(r)
	a.logger.Info("user created", "user_id", user.ID, "is_admin", user.IsAdmin, "by", me.ID)
	a.sendJSON(w, http.StatusCreated, userResponse(user))
}

func (a *Admin) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.GetUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrUserNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		a.sendInternalError(w, "failed to get user", err)
		return
	}
	a.sendJSON(w, http.StatusOK, userResponse(user))
}

func (a *Admin) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	me, _ := currentAdmin(r)
	if id == me.ID && req.IsAdmin != nil && !*req.IsAdmin {
		a.sendJSONError(w, http.StatusConflict, "cannot remove your own admin role")
		return
	}

	user, err := a.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		a.sendInternalError(w, "failed to get user", err)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := auth.ValidateName(name); err != nil {
			a.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Name = name
	}
	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		if err := auth.ValidateEmail(email); err != nil {
			a.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Email = email
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			a.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			a.sendInternalError(w, "failed to hash password", err)
			return
		}
		user.PasswordHash = hash
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	user.UpdatedAt = a.config.Now().UTC()

	if err := a.store.UpdateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, store.ErrEmailExists):
			a.sendJSONError(w, http.StatusConflict, store.ErrEmailExists.Error())
		case errors.Is(err, store.ErrUserNotFound):
			a.sendJSONError(w, http.StatusNotFound, "user not found")
		default:
			a.sendInternalError(w, "failed to update user", err)
		}
		return
	}

	a.logger.Info("user updated", "user_id", user.ID, "is_admin", user.IsAdmin, "by", me.ID)
	a.sendJSON(w, http.StatusOK, userResponse(user))
}

func (a *Admin) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	me, _ := currentAdmin(r)
	if id == me.ID {
		a.sendJSONError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			a.sendJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		a.sendInternalError(w, "failed to delete user", err)
		return
	}

	a.logger.Info("user deleted", "user_id", id, "by", me.ID)
	w.WriteHeader(http.StatusNoContent)
}
