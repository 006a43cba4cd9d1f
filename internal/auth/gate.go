// ABOUTME: Authorization gate for the admin area
// ABOUTME: Redirects to setup until an admin exists, then requires an admin session

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Decision is the outcome of a gate check.
type Decision int

const (
	// DecisionPass lets the request through.
	DecisionPass Decision = iota
	// DecisionRedirectSetup sends the client to first-run setup.
	DecisionRedirectSetup
	// DecisionRedirectLogin sends the client to the login page.
	DecisionRedirectLogin
	// DecisionError means the gate could not decide; the request fails closed.
	DecisionError
)

func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "pass"
	case DecisionRedirectSetup:
		return "redirect_setup"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionError:
		return "error"
	default:
		return "unknown"
	}
}

// GateConfig names the protected prefix and its public entry points.
type GateConfig struct {
	Prefix    string
	SetupPath string
	LoginPath string
}

// DefaultGateConfig protects /admin.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Prefix:    "/admin",
		SetupPath: "/admin/setup",
		LoginPath: "/admin/login",
	}
}

// SessionResolver resolves the session of a request.
type SessionResolver interface {
	CurrentUser(r *http.Request) Session
}

// Gate guards every request under its prefix.
type Gate struct {
	cfg      GateConfig
	setup    SetupStatus
	sessions SessionResolver
	logger   *slog.Logger
}

// NewGate creates a gate.
func NewGate(cfg GateConfig, setup SetupStatus, sessions SessionResolver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cfg:      cfg,
		setup:    setup,
		sessions: sessions,
		logger:   logger.With("component", "gate"),
	}
}

// Protects reports whether path is under the gate's prefix.
func (g *Gate) Protects(path string) bool {
	return path == g.cfg.Prefix || strings.HasPrefix(path, g.cfg.Prefix+"/")
}

func matchPath(path, target string) bool {
	return path == target || strings.HasPrefix(path, target+"/")
}

// Decide evaluates a request without writing a response. The returned
// Session is the one to attach when the decision is DecisionPass.
func (g *Gate) Decide(ctx context.Context, r *http.Request) (Decision, Session, error) {
	path := r.URL.Path

	if !g.Protects(path) {
		return DecisionPass, g.sessions.CurrentUser(r), nil
	}

	// Setup is reachable at all times; its handler refuses once done.
	if matchPath(path, g.cfg.SetupPath) {
		return DecisionPass, g.sessions.CurrentUser(r), nil
	}

	needed, err := g.setup.IsSetupNeeded(ctx)
	if err != nil {
		return DecisionError, Anonymous{}, err
	}
	if needed {
		return DecisionRedirectSetup, Anonymous{}, nil
	}

	session := g.sessions.CurrentUser(r)

	if matchPath(path, g.cfg.LoginPath) {
		return DecisionPass, session, nil
	}

	if !IsAdmin(session) {
		return DecisionRedirectLogin, session, nil
	}
	return DecisionPass, session, nil
}

// Middleware applies the gate's decision to every request.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, session, err := g.Decide(r.Context(), r)

		switch decision {
		case DecisionPass:
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))

		case DecisionRedirectSetup:
			g.logger.Debug("redirecting to setup", "path", r.URL.Path)
			http.Redirect(w, r, g.cfg.SetupPath, http.StatusSeeOther)

		case DecisionRedirectLogin:
			reason := "not_authenticated"
			if _, ok := ClaimsOf(session); ok {
				reason = "not_admin"
			}
			g.logger.Info("admin access denied", "reason", reason, "path", r.URL.Path)
			http.Redirect(w, r, g.cfg.LoginPath, http.StatusSeeOther)

		default:
			g.logger.Error("gate check failed", "error", err, "path", r.URL.Path)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	})
}
