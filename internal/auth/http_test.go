// ABOUTME: Tests for HTTP session middleware on API endpoints
// ABOUTME: Covers bearer extraction, session attachment and the user/admin guards

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantErr   string
	}{
		{"", "", "missing authorization header"},
		{"Basic abc", "", "invalid authorization header format"},
		{"bearer abc", "", "invalid authorization header format"},
		{"Bearer ", "", "empty token"},
		{"Bearer abc.def.ghi", "abc.def.ghi", ""},
	}

	for _, tt := range tests {
		token, errMsg := extractBearerToken(tt.header)
		if token != tt.wantToken || errMsg != tt.wantErr {
			t.Errorf("extractBearerToken(%q) = (%q, %q), want (%q, %q)", tt.header, token, errMsg, tt.wantToken, tt.wantErr)
		}
	}
}

func TestSessionMiddleware_AttachesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _, err := env.issuer.Issue(testClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var got Session
	handler := SessionMiddleware(env.svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	claims, ok := ClaimsOf(got)
	if !ok {
		t.Fatalf("session = %T, want Authenticated", got)
	}
	if claims.ID != testClaims.ID {
		t.Errorf("claims.ID = %q, want %q", claims.ID, testClaims.ID)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if _, ok := got.(Anonymous); !ok {
		t.Errorf("session = %T, want Anonymous", got)
	}
}

func TestRequireUserHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _, _ := env.issuer.Issue(testClaims)

	handler := SessionMiddleware(env.svc)(RequireUserHTTP()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("anonymous: body = %q, want JSON error", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("signed in: status = %d, want 200", rec.Code)
	}
}
