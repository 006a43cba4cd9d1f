// ABOUTME: Tests for the storefront command: config generation, bootstrap, health checks and logging
// ABOUTME: Generated configs are fed back through the real config parser

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/config"
)

func defaultInitOptions(t *testing.T) initOptions {
	return initOptions{
		HTTPAddr:  "localhost:8080",
		DBPath:    filepath.Join(t.TempDir(), "shop.db"),
		Currency:  "usd",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func TestRenderConfig_RoundTrips(t *testing.T) {
	content, err := renderConfig(defaultInitOptions(t))
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(content), false)
	require.NoError(t, err, content)

	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.GreaterOrEqual(t, len(cfg.Auth.JWTSecret), config.MinJWTSecretLength)
	assert.Len(t, cfg.Cart.HashKey, 32)
	assert.Len(t, cfg.Cart.BlockKey, 32)
	assert.Equal(t, "none", cfg.Payments.Provider)
	assert.False(t, cfg.Auth.SecureCookies())
	assert.False(t, cfg.Tailscale.Enabled)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestRenderConfig_FreshSecrets(t *testing.T) {
	opts := defaultInitOptions(t)
	a, err := renderConfig(opts)
	require.NoError(t, err)
	b, err := renderConfig(opts)
	require.NoError(t, err)

	cfgA, err := config.Parse([]byte(a), false)
	require.NoError(t, err)
	cfgB, err := config.Parse([]byte(b), false)
	require.NoError(t, err)
	assert.NotEqual(t, cfgA.Auth.JWTSecret, cfgB.Auth.JWTSecret)
	assert.NotEqual(t, cfgA.Cart.HashKey, cfgB.Cart.HashKey)
}

func TestRenderConfig_AllSections(t *testing.T) {
	opts := defaultInitOptions(t)
	opts.BaseURL = "https://shop.example.com"
	opts.CookieSecure = true
	opts.StripeSecretKey = "sk_test_abc"
	opts.Currency = "eur"
	opts.AllowedOrigins = []string{"https://shop.example.com", "https://www.example.com"}
	opts.TailscaleEnabled = true
	opts.TailscaleHostname = "shop"
	opts.TailscaleFunnel = true
	opts.LogFormat = "json"

	content, err := renderConfig(opts)
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(content), false)
	require.NoError(t, err, content)

	assert.Equal(t, "https://shop.example.com", cfg.Server.BaseURL)
	assert.True(t, cfg.Auth.SecureCookies())
	assert.Equal(t, "stripe", cfg.Payments.Provider)
	assert.Equal(t, "sk_test_abc", cfg.Payments.StripeSecretKey)
	assert.Equal(t, "eur", cfg.Payments.Currency)
	assert.Equal(t, opts.AllowedOrigins, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "shop", cfg.Tailscale.Hostname)
	assert.True(t, cfg.Tailscale.Funnel)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b,,c"))
}

func TestParseBootstrapArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    bootstrapArgs
		wantErr string
	}{
		{name: "separate values", args: []string{"--name", "Alice", "--email", "alice@example.com"}, want: bootstrapArgs{"Alice", "alice@example.com"}},
		{name: "equals form", args: []string{"--name=Alice", "--email=alice@example.com"}, want: bootstrapArgs{"Alice", "alice@example.com"}},
		{name: "short flags", args: []string{"-n", "Alice", "-e", "alice@example.com"}, want: bootstrapArgs{"Alice", "alice@example.com"}},
		{name: "missing value", args: []string{"--name"}, wantErr: "requires a value"},
		{name: "missing email", args: []string{"--name", "Alice"}, wantErr: "--email"},
		{name: "missing name", args: []string{"--email", "a@example.com"}, wantErr: "--name"},
		{name: "unknown flag", args: []string{"--admin"}, wantErr: "unknown flag"},
		{name: "stray argument", args: []string{"Alice"}, wantErr: "unexpected argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBootstrapArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadPassword(t *testing.T) {
	t.Setenv("STOREFRONT_ADMIN_PASSWORD", "")
	p, err := readPassword(strings.NewReader("hunter22\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", p)

	t.Setenv("STOREFRONT_ADMIN_PASSWORD", "from-env")
	p, err = readPassword(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)
}

func TestBootstrapAdmin(t *testing.T) {
	content, err := renderConfig(defaultInitOptions(t))
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(content), false)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = bootstrapAdmin(ctx, cfg, "Alice", "alice@example.com", "x")
	require.Error(t, err, "password too short")

	claims, err := bootstrapAdmin(ctx, cfg, "Alice", "Alice@Example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, err = bootstrapAdmin(ctx, cfg, "Mallory", "mallory@example.com", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already complete")
}

func TestLocalURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/health", localURL(":8080", "/health"))
	assert.Equal(t, "http://localhost:8080/health", localURL("0.0.0.0:8080", "/health"))
	assert.Equal(t, "http://127.0.0.1:9000/health/ready", localURL("127.0.0.1:9000", "/health/ready"))
}

func TestProbe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
	}))
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, probe(context.Background(), ts.URL+"/health", &out))
	assert.Equal(t, "OK\n", out.String())

	err := probe(context.Background(), ts.URL+"/health/ready", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	logger := slog.New(&colorHandler{out: &buf, mu: new(sync.Mutex), level: slog.LevelInfo})

	logger.Debug("hidden")
	logger.With("component", "shop").Info("order paid", "order_id", "o-1")
	logger.WithGroup("req").Warn("slow", "ms", 1200)
	logger.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF order paid component=shop order_id=o-1")
	assert.Contains(t, out, "WRN slow req.ms=1200")
	assert.Contains(t, out, "ERR boom")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestSetupLogger_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("dropped")
	logger.Warn("kept", "n", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
