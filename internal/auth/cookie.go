// ABOUTME: Session cookie carrier that writes, clears and reads the session token
// ABOUTME: Reads the cookie first and falls back to an Authorization bearer header

package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie holding the session token.
const SessionCookieName = "storefront_session"

// CookieCarrier moves session tokens between responses and requests.
type CookieCarrier struct {
	name   string
	secure bool
	now    Clock
}

// NewCookieCarrier creates a carrier. secure controls the cookie Secure
// attribute and should only be false for plain-HTTP development.
func NewCookieCarrier(secure bool, clock Clock) *CookieCarrier {
	if clock == nil {
		clock = time.Now
	}
	return &CookieCarrier{
		name:   SessionCookieName,
		secure: secure,
		now:    clock,
	}
}

// SetSession writes the session cookie. Its lifetime mirrors the token's.
func (c *CookieCarrier) SetSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(c.now()).Seconds())
	if maxAge <= 0 {
		c.ClearSession(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession instructs the client to delete the session cookie.
func (c *CookieCarrier) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session token from the cookie or, failing
// that, from an Authorization bearer header.
func (c *CookieCarrier) TokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(c.name); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		return "", false
	}
	return token, true
}
