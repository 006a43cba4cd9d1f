// ABOUTME: Storefront JSON API wiring: routes, dependencies and response helpers
// ABOUTME: Serves auth, catalog, cart, checkout and order endpoints under /api

package shop

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/payment"
	"github.com/2389/storefront/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Store is the persistence the storefront API needs.
type Store interface {
	store.CatalogStore
	store.OrderStore
}

// Config holds storefront settings.
type Config struct {
	Currency   string
	SuccessURL string // may contain payment.SessionIDPlaceholder
	CancelURL  string
	Now        func() time.Time
}

// Shop serves the customer-facing API.
type Shop struct {
	store    Store
	auth     *auth.Service
	carts    *CartCodec
	payments payment.Gateway
	markdown goldmark.Markdown
	cfg      Config
	logger   *slog.Logger
}

// New creates the storefront API.
func New(s Store, authService *auth.Service, carts *CartCodec, payments payment.Gateway, cfg Config, logger *slog.Logger) *Shop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shop{
		store:    s,
		auth:     authService,
		carts:    carts,
		payments: payments,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		cfg:      cfg,
		logger:   logger.With("component", "shop"),
	}
}

// RegisterRoutes adds the storefront API routes to the mux.
func (s *Shop) RegisterRoutes(mux *http.ServeMux) {
	requireUser := auth.RequireUserHTTP()

	// Account
	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(s.handleMe)))

	// Catalog
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)

	// Cart
	mux.HandleFunc("GET /api/cart", s.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", s.handleAddCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", s.handleRemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", s.handleClearCart)

	// Checkout and orders
	mux.Handle("POST /api/checkout", requireUser(http.HandlerFunc(s.handleCheckout)))
	mux.Handle("GET /api/checkout/confirm", requireUser(http.HandlerFunc(s.handleConfirmCheckout)))
	mux.Handle("GET /api/orders", requireUser(http.HandlerFunc(s.handleListOrders)))
	mux.Handle("GET /api/orders/{id}", requireUser(http.HandlerFunc(s.handleGetOrder)))
}

// Handler returns the storefront API with session resolution applied.
func (s *Shop) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return auth.SessionMiddleware(s.auth)(mux)
}

func (s *Shop) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Shop) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendInternalError logs err once and writes an opaque 500.
func (s *Shop) sendInternalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func currentClaims(r *http.Request) (auth.Claims, bool) {
	return auth.ClaimsOf(auth.FromContext(r.Context()))
}

// UserResponse is the public view of a signed-in user.
type UserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func userResponse(c auth.Claims) UserResponse {
	return UserResponse{ID: c.ID, Name: c.Name, Email: c.Email, IsAdmin: c.IsAdmin}
}
