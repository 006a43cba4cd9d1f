// ABOUTME: End-to-end scenario tests for sign-up, the admin gate and sign-out using real SQLite
// ABOUTME: Validates the full auth chain without mocking the store

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/store"
)

func createTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newScenarioEnv(t *testing.T) (*testEnv, *store.SQLiteStore, http.Handler) {
	t.Helper()
	s := createTestStore(t)
	env := newTestEnv(t, s)
	gate := newTestGate(env)
	protected := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return env, s, protected
}

func TestScenario_FirstSignUpIsAdmin(t *testing.T) {
	env, s, _ := newScenarioEnv(t)
	ctx := context.Background()

	res, err := env.svc.SignUp(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.True(t, res.Claims.IsAdmin)
	assert.Equal(t, "Alice", res.Claims.Name)
	assert.Equal(t, "a@x.com", res.Claims.Email)

	stored, err := s.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, VerifyPassword(stored.PasswordHash, "secret1"))
	assert.True(t, stored.IsAdmin)

	second, err := env.svc.SignUp(ctx, "Bob", "b@x.com", "secret2")
	require.NoError(t, err)
	assert.False(t, second.Claims.IsAdmin)
}

func TestScenario_DuplicateSignUpRejected(t *testing.T) {
	env, s, _ := newScenarioEnv(t)
	ctx := context.Background()

	_, err := env.svc.SignUp(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = env.svc.SignUp(ctx, "Alice", "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScenario_AdminOrdersWithoutCookieRedirectsToLogin(t *testing.T) {
	env, _, protected := newScenarioEnv(t)
	_, err := env.svc.SignUp(context.Background(), "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestScenario_AdminOrdersBeforeAnyUserRedirectsToSetup(t *testing.T) {
	env, _, protected := newScenarioEnv(t)

	validAdmin, _, err := env.issuer.Issue(testClaims)
	require.NoError(t, err)

	for name, cookie := range map[string]string{
		"no cookie":          "",
		"garbage cookie":     "garbage",
		"valid admin cookie": validAdmin,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code, name)
		assert.Equal(t, "/admin/setup", rec.Header().Get("Location"), name)
	}
}

func TestScenario_SignOutThenReplayRedirectsToLogin(t *testing.T) {
	env, _, protected := newScenarioEnv(t)
	ctx := context.Background()

	res, err := env.svc.SignUp(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	// Sign in: the browser stores the session cookie.
	login := httptest.NewRecorder()
	env.svc.StartSession(login, res)
	jar := login.Result().Cookies()
	require.Len(t, jar, 1)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(jar[0])
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Sign out: the browser replaces the cookie with the cleared one.
	logout := httptest.NewRecorder()
	env.svc.SignOut(logout)
	cleared := logout.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)

	replay := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	replay.AddCookie(cleared[0])
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, replay)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}
