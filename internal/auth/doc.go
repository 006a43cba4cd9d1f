// Package auth provides authentication and session authorization for the storefront.
//
// # Credentials
//
// Passwords are hashed with bcrypt at cost 10. VerifyPassword fails closed:
// a malformed hash is a mismatch. Sign-in against an unknown email still
// runs one bcrypt comparison so response time does not reveal which
// emails are registered, and every failure reads "invalid email or password".
//
// # Session Tokens
//
// A session is a stateless HS256 JWT carrying {id, name, email, isAdmin}
// and an expiry:
//
//	issuer, err := NewJWTIssuer(secret, 72*time.Hour)
//	token, expiresAt, err := issuer.Issue(claims)
//	claims, err := issuer.Verify(token)
//
// A token issued at t with lifetime w verifies for check times in [t, t+w).
// Verify rejects other algorithms, a missing exp, non-canonical base64 and
// any change to the token's bytes.
//
// # Session Cookie
//
// CookieCarrier writes the token to the storefront_session cookie (HttpOnly,
// Secure, SameSite=Lax, Path=/) and reads it back, falling back to an
// Authorization: Bearer header for API clients. There is no server-side
// session table; sign-out clears the cookie.
//
// # Sessions
//
// Every request resolves to a Session, either Anonymous or
// Authenticated{Claims}. Middleware attaches it with WithSession and
// handlers read it with FromContext.
//
// # Admin Gate
//
// Gate protects /admin. Until an admin account exists every admin path
// except /admin/setup redirects to setup. Afterwards /admin/login is open
// and everything else requires an admin session, redirecting to login
// otherwise. A store failure during the setup check fails closed with 500.
package auth
