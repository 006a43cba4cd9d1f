// ABOUTME: Tests for admin user management
// ABOUTME: Covers create, list, update, delete and the self-protection rules

package webadmin

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/auth"
)

func ptr[T any](v T) *T { return &v }

func TestUsers_CRUD(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/users", CreateUserRequest{
		Name: "Bob", Email: " Bob@Example.com ", Password: "secret2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bob := decodeBody[UserResponse](t, rec)
	assert.Equal(t, "bob@example.com", bob.Email)
	assert.False(t, bob.IsAdmin)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ta.do(t, c, http.MethodPost, "/admin/users", CreateUserRequest{
		Name: "Bobby", Email: "bob@example.com", Password: "secret2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, c, http.MethodPost, "/admin/users", CreateUserRequest{
		Name: "Carol", Email: "carol@example.com", Password: "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, c, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[UserListResponse](t, rec)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, 2, list.Total)

	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+bob.ID, UpdateUserRequest{
		Name: ptr("Robert"), IsAdmin: ptr(true), Password: ptr("newsecret"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[UserResponse](t, rec)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, "bob@example.com", updated.Email)
	assert.True(t, updated.IsAdmin)

	// The new password works and the promoted account can sign in to the back office.
	res, err := ta.auth.SignIn(context.Background(), "bob@example.com", "newsecret")
	require.NoError(t, err)
	assert.True(t, res.Claims.IsAdmin)

	rec = ta.do(t, c, http.MethodGet, "/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(t, c, http.MethodDelete, "/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ta.do(t, c, http.MethodGet, "/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ta.do(t, c, http.MethodDelete, "/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers_UpdateEmailConflict(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/users", CreateUserRequest{
		Name: "Bob", Email: "bob@example.com", Password: "secret2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decodeBody[UserResponse](t, rec)

	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+bob.ID, UpdateUserRequest{Email: ptr("ALICE@example.com")})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+bob.ID, UpdateUserRequest{Email: ptr("not-an-email")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, c, http.MethodPut, "/admin/users/missing", UpdateUserRequest{Name: ptr("Ghost")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers_SelfProtection(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodGet, "/admin/login", nil)
	me := decodeBody[LoginStatusResponse](t, rec).User
	require.NotNil(t, me)

	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+me.ID, UpdateUserRequest{IsAdmin: ptr(false)})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot remove your own admin role")

	rec = ta.do(t, c, http.MethodDelete, "/admin/users/"+me.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot delete your own account")

	// Renaming yourself is fine.
	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+me.ID, UpdateUserRequest{Name: ptr("Alice A."), IsAdmin: ptr(true)})
	assert.Equal(t, http.StatusOK, rec.Code)

	user, err := ta.store.GetUser(context.Background(), me.ID)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "Alice A.", user.Name)
}

func TestUsers_DemotedAdminTokenStaysValidUntilExpiry(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/users", CreateUserRequest{
		Name: "Bob", Email: "bob@example.com", Password: "secret2", IsAdmin: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decodeBody[UserResponse](t, rec)

	res, err := ta.auth.SignIn(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)
	bobClient := newClient()
	bobClient.cookies[auth.SessionCookieName] = &http.Cookie{Name: auth.SessionCookieName, Value: res.Token}

	rec = ta.do(t, c, http.MethodPut, "/admin/users/"+bob.ID, UpdateUserRequest{IsAdmin: ptr(false)})
	require.Equal(t, http.StatusOK, rec.Code)

	// Sessions are stateless: the old token still carries isAdmin.
	rec = ta.do(t, bobClient, http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A fresh sign-in reflects the demotion.
	res, err = ta.auth.SignIn(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)
	assert.False(t, res.Claims.IsAdmin)
}
