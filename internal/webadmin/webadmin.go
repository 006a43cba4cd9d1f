// ABOUTME: Admin back office for the storefront, served as JSON under /admin
// ABOUTME: Provides first-run setup, admin login and logout, CSRF protection and route wiring

package webadmin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/store"
)

const (
	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "storefront_admin_csrf"

	// CSRFHeader carries the CSRF token on state-changing requests
	CSRFHeader = "X-CSRF-Token"

	// StatsWindow is how far back the dashboard's daily sales go
	StatsWindow = 30 * 24 * time.Hour

	maxBodyBytes = 1 << 20
)

// Store is the persistence the back office needs.
type Store interface {
	store.UserStore
	store.CatalogStore
	store.OrderStore
	store.StatsStore
}

// Config holds admin settings
type Config struct {
	// SecureCookies sets the Secure attribute on the CSRF cookie
	SecureCookies bool
	Now           func() time.Time
}

// Admin handles admin routes. Every route sits behind the auth gate.
type Admin struct {
	store  Store
	auth   *auth.Service
	gate   *auth.Gate
	config Config
	logger *slog.Logger
}

// New creates a new Admin handler
func New(s Store, authService *auth.Service, gate *auth.Gate, cfg Config, logger *slog.Logger) *Admin {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{
		store:  s,
		auth:   authService,
		gate:   gate,
		config: cfg,
		logger: logger.With("component", "admin"),
	}
}

// RegisterRoutes registers all admin routes on the given mux.
// Authorization is applied by Handler, not per route.
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Entry points the gate leaves open
	mux.HandleFunc("GET /admin/setup", a.handleSetupStatus)
	mux.HandleFunc("POST /admin/setup", a.handleSetup)
	mux.HandleFunc("GET /admin/login", a.handleLoginStatus)
	mux.HandleFunc("POST /admin/login", a.handleLogin)

	mux.HandleFunc("POST /admin/logout", a.handleLogout)

	// Dashboard
	mux.HandleFunc("GET /admin", a.handleDashboard)
	mux.HandleFunc("GET /admin/{$}", a.handleDashboard)

	// Users
	mux.HandleFunc("GET /admin/users", a.handleListUsers)
	mux.HandleFunc("POST /admin/users", a.handleCreateUser)
	mux.HandleFunc("GET /admin/users/{id}", a.handleGetUser)
	mux.HandleFunc("PUT /admin/users/{id}", a.handleUpdateUser)
	mux.HandleFunc("DELETE /admin/users/{id}", a.handleDeleteUser)

	// Orders
	mux.HandleFunc("GET /admin/orders", a.handleListOrders)
	mux.HandleFunc("GET /admin/orders/{id}", a.handleGetOrder)
	mux.HandleFunc("POST /admin/orders/{id}/deliver", a.handleDeliverOrder)
	mux.HandleFunc("POST /admin/orders/{id}/cancel", a.handleCancelOrder)
	mux.HandleFunc("DELETE /admin/orders/{id}", a.handleDeleteOrder)

	// Catalog
	mux.HandleFunc("GET /admin/categories", a.handleListCategories)
	mux.HandleFunc("POST /admin/categories", a.handleCreateCategory)
	mux.HandleFunc("PUT /admin/categories/{id}", a.handleUpdateCategory)
	mux.HandleFunc("DELETE /admin/categories/{id}", a.handleDeleteCategory)
	mux.HandleFunc("GET /admin/products", a.handleListProducts)
	mux.HandleFunc("POST /admin/products", a.handleCreateProduct)
	mux.HandleFunc("GET /admin/products/{id}", a.handleGetProduct)
	mux.HandleFunc("PUT /admin/products/{id}", a.handleUpdateProduct)
	mux.HandleFunc("DELETE /admin/products/{id}", a.handleDeleteProduct)
}

// Handler returns the admin routes behind the gate and CSRF check.
func (a *Admin) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return a.gate.Middleware(a.requireCSRF(mux))
}

// currentAdmin returns the claims the gate attached to the request.
func currentAdmin(r *http.Request) (auth.Claims, bool) {
	return auth.ClaimsOf(auth.FromContext(r.Context()))
}

// csrfExempt lists the unsafe routes reachable without a session.
func csrfExempt(path string) bool {
	switch path {
	case "/admin/setup", "/admin/login", "/admin/logout":
		return true
	}
	return false
}

// requireCSRF enforces the double-submit token on state-changing requests
func (a *Admin) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if csrfExempt(r.URL.Path) || a.validateCSRF(r) {
			next.ServeHTTP(w, r)
			return
		}
		a.logger.Warn("request with invalid CSRF token", "path", r.URL.Path)
		a.sendJSONError(w, http.StatusForbidden, "invalid CSRF token")
	})
}

// ensureCSRFToken returns the request's CSRF token, issuing a cookie if absent
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   a.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF checks the header token against the cookie
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := r.Header.Get(CSRFHeader)
	return header != "" && subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) == 1
}

func (a *Admin) clearCSRFToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (a *Admin) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (a *Admin) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendInternalError logs err once and writes an opaque 500.
func (a *Admin) sendInternalError(w http.ResponseWriter, msg string, err error) {
	a.logger.Error(msg, "error", err)
	a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
