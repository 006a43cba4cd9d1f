// ABOUTME: Server orchestrator that wires the store, auth, storefront API and admin back office
// ABOUTME: Owns the HTTP listener (TCP or tailnet), health endpoints and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	corspkg "github.com/rs/cors"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/config"
	"github.com/2389/storefront/internal/payment"
	"github.com/2389/storefront/internal/shop"
	"github.com/2389/storefront/internal/store"
	"github.com/2389/storefront/internal/webadmin"
)

// shutdownTimeout bounds graceful shutdown once the run context is done.
const shutdownTimeout = 5 * time.Second

// Server orchestrates the storefront's HTTP surface.
type Server struct {
	config      *config.Config
	pool        *store.Pool
	store       store.Store
	auth        *auth.Service
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	pool     *store.Pool
	payments payment.Gateway
}

// WithPool uses an existing store pool instead of opening database.path.
func WithPool(p *store.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithPaymentGateway overrides the gateway chosen by payments.provider.
func WithPaymentGateway(g payment.Gateway) Option {
	return func(o *options) { o.payments = g }
}

// resolveDatabasePath returns the database path, honoring STOREFRONT_DB_PATH.
func resolveDatabasePath(cfg *config.Config) string {
	if envPath := os.Getenv("STOREFRONT_DB_PATH"); envPath != "" {
		return envPath
	}
	return cfg.Database.Path
}

// newPaymentGateway builds the gateway named by payments.provider.
func newPaymentGateway(cfg *config.Config, logger *slog.Logger) (payment.Gateway, error) {
	switch cfg.Payments.Provider {
	case "stripe":
		g, err := payment.NewStripeGateway(cfg.Payments.StripeSecretKey, cfg.Payments.Currency, payment.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("creating stripe gateway: %w", err)
		}
		return g, nil
	default:
		logger.Warn("payments disabled: checkouts are marked paid without charging")
		return payment.NewNoopGateway(), nil
	}
}

// newCORS allows credentialed cross-origin calls from the configured origins.
func newCORS(allowedOrigins []string) *corspkg.Cors {
	return corspkg.New(corspkg.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
}

// New creates a Server from configuration. The store is opened eagerly so
// a bad database path fails at startup.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pool := o.pool
	if pool == nil {
		pool = store.NewPool(resolveDatabasePath(cfg))
	}
	s, err := pool.Store()
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	issuer, err := auth.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	carrier := auth.NewCookieCarrier(cfg.Auth.SecureCookies(), nil)
	authService := auth.NewService(s, issuer, carrier, nil, logger)
	gate := auth.NewGate(auth.DefaultGateConfig(), authService, authService, logger)

	payments := o.payments
	if payments == nil {
		payments, err = newPaymentGateway(cfg, logger)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
	}

	srv := &Server{
		config: cfg,
		pool:   pool,
		store:  s,
		auth:   authService,
		logger: logger.With("component", "server"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /health/ready", srv.handleReady)

	carts := shop.NewCartCodec(cfg.Cart.HashKey, cfg.Cart.BlockKey, cfg.Auth.SecureCookies())
	storefront := shop.New(s, authService, carts, payments, shop.Config{
		Currency:   cfg.Payments.Currency,
		SuccessURL: cfg.Payments.SuccessURL,
		CancelURL:  cfg.Payments.CancelURL,
	}, logger)
	var api http.Handler = storefront.Handler()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		// An empty list would make rs/cors allow every origin.
		api = newCORS(cfg.CORS.AllowedOrigins).Handler(api)
		logger.Info("CORS enabled for storefront API", "origins", cfg.CORS.AllowedOrigins)
	}
	mux.Handle("/api/", api)

	admin := webadmin.New(s, authService, gate, webadmin.Config{
		SecureCookies: cfg.Auth.SecureCookies(),
	}, logger).Handler()
	mux.Handle("/admin", admin)
	mux.Handle("/admin/", admin)

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupListener creates the HTTP listener (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	s.logger.Info("starting storefront", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// Run starts the server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		_ = s.gracefulShutdown()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until the context is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "storefront", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener joins the tailnet and listens on :80, or on :443
// through Funnel when the shop should be public.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	var ln net.Listener
	if tsCfg.Funnel {
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err = s.tsnetServer.ListenFunnel("tcp", ":443")
	} else {
		ln, err = s.tsnetServer.Listen("tcp", ":80")
	}
	if err != nil {
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases the tailnet node and store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down storefront")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", s.pool.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the database answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
