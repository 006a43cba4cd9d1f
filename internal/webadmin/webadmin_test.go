// ABOUTME: Tests for the admin gate, setup, login, logout and CSRF handling over HTTP
// ABOUTME: Uses a real SQLite store so the first-run and sign-out scenarios run end to end

package webadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/store"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testAdmin struct {
	store   *store.SQLiteStore
	auth    *auth.Service
	handler http.Handler
}

func newTestAdmin(t *testing.T) *testAdmin {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	issuer, err := auth.NewJWTIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(s, issuer, auth.NewCookieCarrier(false, nil), nil, nil)
	gate := auth.NewGate(auth.DefaultGateConfig(), svc, svc, nil)

	a := New(s, svc, gate, Config{}, nil)
	return &testAdmin{store: s, auth: svc, handler: a.Handler()}
}

// client is a minimal cookie jar plus the CSRF token the server handed out.
type client struct {
	cookies map[string]*http.Cookie
	csrf    string
}

func newClient() *client {
	return &client{cookies: make(map[string]*http.Cookie)}
}

func (ta *testAdmin) do(t *testing.T, c *client, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if c != nil {
		for _, cookie := range c.cookies {
			req.AddCookie(cookie)
		}
		if c.csrf != "" {
			req.Header.Set(CSRFHeader, c.csrf)
		}
	}

	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)

	if c != nil {
		for _, cookie := range rec.Result().Cookies() {
			if cookie.MaxAge < 0 || cookie.Value == "" {
				delete(c.cookies, cookie.Name)
				continue
			}
			c.cookies[cookie.Name] = cookie
		}
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// setup runs first-run setup and returns the signed-in admin client.
func (ta *testAdmin) setup(t *testing.T) *client {
	t.Helper()
	c := newClient()
	rec := ta.do(t, c, http.MethodPost, "/admin/setup", CredentialsRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c.csrf = decodeBody[SessionResponse](t, rec).CSRFToken
	require.NotEmpty(t, c.csrf)
	return c
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}

func TestGate_BeforeSetupEverythingRedirectsToSetup(t *testing.T) {
	ta := newTestAdmin(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/admin"},
		{http.MethodGet, "/admin/orders"},
		{http.MethodGet, "/admin/login"},
		{http.MethodPost, "/admin/login"},
		{http.MethodDelete, "/admin/users/x"},
	} {
		rec := ta.do(t, nil, req.method, req.path, nil)
		assertRedirect(t, rec, "/admin/setup")
	}

	rec := ta.do(t, nil, http.MethodGet, "/admin/setup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[SetupStatusResponse](t, rec).SetupNeeded)
}

func TestSetup(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	session, ok := c.cookies[auth.SessionCookieName]
	require.True(t, ok)
	assert.NotEmpty(t, session.Value)
	assert.True(t, session.HttpOnly)

	rec := ta.do(t, c, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeBody[DashboardResponse](t, rec)
	assert.Equal(t, 1, dash.Users)
	assert.Equal(t, "alice@example.com", dash.User.Email)
	assert.True(t, dash.User.IsAdmin)

	rec = ta.do(t, nil, http.MethodGet, "/admin/setup", nil)
	assert.False(t, decodeBody[SetupStatusResponse](t, rec).SetupNeeded)

	// A second setup is refused even without a session.
	rec = ta.do(t, nil, http.MethodPost, "/admin/setup", CredentialsRequest{
		Name: "Mallory", Email: "mallory@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	n, err := ta.store.CountAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetup_InvalidInput(t *testing.T) {
	ta := newTestAdmin(t)

	rec := ta.do(t, nil, http.MethodPost, "/admin/setup", CredentialsRequest{Name: "A", Email: "bad", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, nil, http.MethodPost, "/admin/setup", CredentialsRequest{Name: "A", Email: "a@example.com", Password: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, nil, http.MethodGet, "/admin/setup", nil)
	assert.True(t, decodeBody[SetupStatusResponse](t, rec).SetupNeeded)
}

func TestGate_AfterSetupRequiresAdmin(t *testing.T) {
	ta := newTestAdmin(t)
	ta.setup(t)

	rec := ta.do(t, nil, http.MethodGet, "/admin/orders", nil)
	assertRedirect(t, rec, "/admin/login")

	rec = ta.do(t, nil, http.MethodGet, "/admin/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[LoginStatusResponse](t, rec)
	assert.False(t, status.Authenticated)
	assert.NotEmpty(t, status.CSRFToken)

	// A signed-in customer is sent to login as well.
	res, err := ta.auth.SignUp(context.Background(), "Bob", "bob@example.com", "secret2")
	require.NoError(t, err)
	require.False(t, res.Claims.IsAdmin)
	customer := newClient()
	customer.cookies[auth.SessionCookieName] = &http.Cookie{Name: auth.SessionCookieName, Value: res.Token}

	rec = ta.do(t, customer, http.MethodGet, "/admin", nil)
	assertRedirect(t, rec, "/admin/login")
}

func TestLogin(t *testing.T) {
	ta := newTestAdmin(t)
	ta.setup(t)
	_, err := ta.auth.SignUp(context.Background(), "Bob", "bob@example.com", "secret2")
	require.NoError(t, err)

	rec := ta.do(t, nil, http.MethodPost, "/admin/login", CredentialsRequest{Email: "alice@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")

	customer := newClient()
	rec = ta.do(t, customer, http.MethodPost, "/admin/login", CredentialsRequest{Email: "bob@example.com", Password: "secret2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, hasSession := customer.cookies[auth.SessionCookieName]
	assert.False(t, hasSession, "no session for a customer")

	admin := newClient()
	rec = ta.do(t, admin, http.MethodPost, "/admin/login", CredentialsRequest{Email: "ALICE@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	admin.csrf = decodeBody[SessionResponse](t, rec).CSRFToken

	rec = ta.do(t, admin, http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(t, admin, http.MethodGet, "/admin/login", nil)
	status := decodeBody[LoginStatusResponse](t, rec)
	assert.True(t, status.Authenticated)
	assert.Equal(t, admin.csrf, status.CSRFToken)
}

func TestLogout_ReplayRedirectsToLogin(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodGet, "/admin/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(t, c, http.MethodPost, "/admin/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, c.cookies, auth.SessionCookieName)
	assert.NotContains(t, c.cookies, CSRFCookieName)

	rec = ta.do(t, c, http.MethodGet, "/admin/orders", nil)
	assertRedirect(t, rec, "/admin/login")
}

func TestCSRF_RequiredForMutations(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	token := c.csrf
	c.csrf = ""
	rec := ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: "Kitchen"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c.csrf = "not-the-token"
	rec = ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: "Kitchen"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c.csrf = token
	rec = ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: "Kitchen"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGate_StoreFailureFailsClosed(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)
	require.NoError(t, ta.store.Close())

	rec := ta.do(t, c, http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
