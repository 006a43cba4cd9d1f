// ABOUTME: JWT issuance and verification for storefront sessions
// ABOUTME: Uses HS256 signing with a configurable secret, TTL and clock

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the minimum signing secret size in bytes.
const MinSecretLength = 32

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 72 * time.Hour

// Token errors
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// Clock returns the current time.
type Clock func() time.Time

// Claims is the identity carried inside a session token.
type Claims struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	UserID  string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// TokenIssuer mints session tokens and verifies them. JWTIssuer is the
// implementation used by the server.
type TokenIssuer interface {
	TokenVerifier
	Issue(c Claims) (token string, expiresAt time.Time, err error)
}

var _ TokenIssuer = (*JWTIssuer)(nil)

// JWTIssuer issues and verifies HS256 session tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

// IssuerOption configures a JWTIssuer.
type IssuerOption func(*JWTIssuer)

// WithClock overrides the issuer's time source.
func WithClock(clock Clock) IssuerOption {
	return func(i *JWTIssuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// NewJWTIssuer creates an issuer. A zero ttl means DefaultSessionTTL.
func NewJWTIssuer(secret []byte, ttl time.Duration, opts ...IssuerOption) (*JWTIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	i := &JWTIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the lifetime of issued tokens.
func (i *JWTIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for c, valid from now until now+TTL.
func (i *JWTIssuer) Issue(c Claims) (string, time.Time, error) {
	now := i.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(i.ttl))

	claims := sessionClaims{
		UserID:  c.ID,
		Name:    c.Name,
		Email:   c.Email,
		IsAdmin: c.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   c.ID,
			IssuedAt:  issuedAt,
			NotBefore: issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Verify validates the signature, algorithm and expiry of tokenString and
// returns the claims it carries.
func (i *JWTIssuer) Verify(tokenString string) (Claims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method is HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpiredToken
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return Claims{}, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}

	return Claims{
		ID:      claims.UserID,
		Name:    claims.Name,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}, nil
}
