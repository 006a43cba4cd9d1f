// ABOUTME: Unit tests for JWT session token issuance and verification
// ABOUTME: Tests round trips, the validity window, tampering, algorithms and malformed input

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSecret is a 32-byte secret that meets MinSecretLength requirement.
var testSecret = []byte("storefront-token-test-secret-32b")

var testClaims = Claims{
	ID:      "user-123",
	Name:    "Alice",
	Email:   "a@x.com",
	IsAdmin: true,
}

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(t *testing.T, clock *fakeClock, ttl time.Duration) *JWTIssuer {
	t.Helper()
	issuer, err := NewJWTIssuer(testSecret, ttl, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	return issuer
}

func TestNewJWTIssuer_ShortSecret(t *testing.T) {
	_, err := NewJWTIssuer([]byte("too-short"), time.Hour)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("NewJWTIssuer() error = %v, want ErrSecretTooShort", err)
	}
}

func TestNewJWTIssuer_DefaultTTL(t *testing.T) {
	issuer, err := NewJWTIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	if issuer.TTL() != DefaultSessionTTL {
		t.Errorf("TTL() = %v, want %v", issuer.TTL(), DefaultSessionTTL)
	}
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)

	for _, c := range []Claims{
		testClaims,
		{ID: "user-456", Name: "Bob", Email: "b@x.com", IsAdmin: false},
		{ID: "u", Name: "", Email: "", IsAdmin: false},
	} {
		token, expiresAt, err := issuer.Issue(c)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if !expiresAt.Equal(clock.Now().Add(time.Hour)) {
			t.Errorf("expiresAt = %v, want %v", expiresAt, clock.Now().Add(time.Hour))
		}

		got, err := issuer.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if got != c {
			t.Errorf("Verify() = %+v, want %+v", got, c)
		}
	}
}

func TestJWTIssuer_ValidityWindow(t *testing.T) {
	const ttl = 10 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"at issue time", 0, nil},
		{"one second in", time.Second, nil},
		{"halfway", ttl / 2, nil},
		{"last valid second", ttl - time.Second, nil},
		{"at expiry", ttl, ErrExpiredToken},
		{"one second after expiry", ttl + time.Second, ErrExpiredToken},
		{"long after expiry", 30 * 24 * time.Hour, ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			issuer := newTestIssuer(t, clock, ttl)

			token, _, err := issuer.Issue(testClaims)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			clock.Advance(tt.elapsed)
			got, err := issuer.Verify(token)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Verify() error = %v, want nil", err)
				}
				if got != testClaims {
					t.Errorf("Verify() = %+v, want %+v", got, testClaims)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTIssuer_TamperedTokenAlwaysRejected(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)

	token, _, err := issuer.Issue(testClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		tampered := []byte(token)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}

		if _, err := issuer.Verify(string(tampered)); err == nil {
			t.Errorf("Verify() accepted token tampered at byte %d", i)
		}
	}
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)
	other, err := NewJWTIssuer([]byte("a-completely-different-secret-32b"), time.Hour, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}

	token, _, err := other.Issue(testClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = issuer.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTIssuer_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)

	claims := sessionClaims{
		UserID:  "user-123",
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing HS512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none: %v", err)
	}

	for name, token := range map[string]string{"HS512": hs512, "none": none} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: Verify() error = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestJWTIssuer_RequiresExpiryAndID(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)

	noExp := sessionClaims{
		UserID:           "user-123",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	}
	noID := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}

	for name, claims := range map[string]sessionClaims{"missing exp": noExp, "missing id": noID} {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("%s: signing: %v", name, err)
		}
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: Verify() error = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestJWTIssuer_MalformedToken(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "two segments", token: "eyJhbGciOiJIUzI1NiJ9.e30"},
		{name: "bad base64", token: "header.payload.signature"},
		{name: "four segments", token: strings.Repeat("e30.", 3) + "e30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Verify() error = %v, want ErrMalformedToken", err)
			}
		})
	}
}
