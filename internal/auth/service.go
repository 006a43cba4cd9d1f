// ABOUTME: Authentication service for sign-in, sign-up, first-run setup and sign-out
// ABOUTME: Ties the user store, bcrypt, the JWT issuer and the cookie carrier together

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/store"
)

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrSetupComplete      = errors.New("setup already completed")
	ErrInvalidInput       = errors.New("invalid input")
)

// UserStore is the subset of the store the auth service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	RegisterUser(ctx context.Context, user *store.User) error
	CreateInitialAdmin(ctx context.Context, user *store.User) error
	CountAdmins(ctx context.Context) (int, error)
}

// SetupStatus reports whether first-run setup still has to happen.
type SetupStatus interface {
	IsSetupNeeded(ctx context.Context) (bool, error)
}

// Result is a freshly issued session.
type Result struct {
	Claims    Claims
	Token     string
	ExpiresAt time.Time
}

// Service implements the storefront's authentication flows.
type Service struct {
	users   UserStore
	issuer  TokenIssuer
	carrier *CookieCarrier
	now     Clock
	logger  *slog.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, issuer TokenIssuer, carrier *CookieCarrier, clock Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		issuer:  issuer,
		carrier: carrier,
		now:     clock,
		logger:  logger.With("component", "auth"),
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks a new password against the length limits.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordLength)
	}
	return nil
}

// ValidateEmail checks that email is a bare, normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: name is too long", ErrInvalidInput)
	}
	return nil
}

func validateRegistration(name, email, password string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// issue signs a token for the user.
func (s *Service) issue(user *store.User) (*Result, error) {
	claims := Claims{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
	token, expiresAt, err := s.issuer.Issue(claims)
	if err != nil {
		return nil, err
	}
	return &Result{Claims: claims, Token: token, ExpiresAt: expiresAt}, nil
}

// SignIn checks credentials and issues a session. Unknown emails and wrong
// passwords both return ErrInvalidCredentials after a bcrypt comparison.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		burnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		burnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("looking up user", err)
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// SignUp registers a customer and issues a session. The very first user
// becomes an admin.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, storeError("looking up user", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &store.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index catches a concurrent sign-up that passed the check above.
	if err := s.users.RegisterUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeError("registering user", err)
	}

	s.logger.Info("user signed up", "user_id", user.ID, "is_admin", user.IsAdmin)
	return s.issue(user)
}

// IsSetupNeeded reports whether no admin exists yet. The store is queried
// on every call.
func (s *Service) IsSetupNeeded(ctx context.Context) (bool, error) {
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return false, storeError("counting admins", err)
	}
	return n == 0, nil
}

// Setup creates the first admin account and issues a session for it.
// Returns ErrSetupComplete once any admin exists.
func (s *Service) Setup(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	needed, err := s.IsSetupNeeded(ctx)
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, ErrSetupComplete
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &store.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateInitialAdmin(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrAdminExists):
			return nil, ErrSetupComplete
		case errors.Is(err, store.ErrEmailExists):
			return nil, ErrDuplicateEmail
		default:
			return nil, storeError("creating admin", err)
		}
	}

	s.logger.Info("initial admin created", "user_id", user.ID)
	return s.issue(user)
}

// StartSession writes the session cookie for a result.
func (s *Service) StartSession(w http.ResponseWriter, res *Result) {
	s.carrier.SetSession(w, res.Token, res.ExpiresAt)
}

// SignOut clears the session cookie. Tokens are stateless, so a copy of
// the old token remains valid until it expires.
func (s *Service) SignOut(w http.ResponseWriter) {
	s.carrier.ClearSession(w)
}

// CurrentUser resolves the request's session. A session attached by
// middleware wins; otherwise the token is read and verified. Any failure
// yields Anonymous.
func (s *Service) CurrentUser(r *http.Request) Session {
	if sess, ok := sessionFromContext(r.Context()); ok {
		return sess
	}

	token, ok := s.carrier.TokenFromRequest(r)
	if !ok {
		return Anonymous{}
	}

	claims, err := s.issuer.Verify(token)
	if err != nil {
		s.logger.Debug("rejected session token", "reason", tokenRejectReason(err), "path", r.URL.Path)
		return Anonymous{}
	}
	return Authenticated{Claims: claims}
}

// RequireUser returns the claims of an authenticated request.
func (s *Service) RequireUser(r *http.Request) (Claims, error) {
	claims, ok := ClaimsOf(s.CurrentUser(r))
	if !ok {
		return Claims{}, ErrUnauthorized
	}
	return claims, nil
}

// RequireAdmin returns the claims of an authenticated admin request.
func (s *Service) RequireAdmin(r *http.Request) (Claims, error) {
	claims, err := s.RequireUser(r)
	if err != nil {
		return Claims{}, err
	}
	if !claims.IsAdmin {
		return Claims{}, ErrUnauthorized
	}
	return claims, nil
}

func tokenRejectReason(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	default:
		return "invalid"
	}
}
