// ABOUTME: Session sum type and its propagation through request contexts
// ABOUTME: A request is either Anonymous or Authenticated with verified claims

package auth

import (
	"context"
)

// Session is the identity attached to a request. It is either Anonymous or
// Authenticated; no other implementations exist.
type Session interface {
	isSession()
}

// Anonymous is a request with no valid session token.
type Anonymous struct{}

// Authenticated is a request carrying a verified token.
type Authenticated struct {
	Claims Claims
}

func (Anonymous) isSession()     {}
func (Authenticated) isSession() {}

// ClaimsOf returns the claims of an authenticated session.
func ClaimsOf(s Session) (Claims, bool) {
	if a, ok := s.(Authenticated); ok {
		return a.Claims, true
	}
	return Claims{}, false
}

// IsAdmin reports whether s is an authenticated admin session.
func IsAdmin(s Session) bool {
	c, ok := ClaimsOf(s)
	return ok && c.IsAdmin
}

// sessionContextKey is the key type for storing a Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the Session attached.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the Session from the context. A context without
// one is Anonymous.
func FromContext(ctx context.Context) Session {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || s == nil {
		return Anonymous{}
	}
	return s
}

// sessionFromContext reports whether a Session was attached at all.
func sessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok && s != nil
}
