// ABOUTME: Interactive config generation for the storefront
// ABOUTME: Prompts for addresses and paths and fills in freshly generated secrets

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/storefront/internal/config"
)

// getDataPath returns the storefront data directory.
// Priority: XDG_DATA_HOME/storefront > ~/.local/share/storefront
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "storefront")
}

// initOptions holds the answers collected by init.
type initOptions struct {
	HTTPAddr        string
	BaseURL         string
	DBPath          string
	CookieSecure    bool
	Currency        string
	StripeSecretKey string // empty disables payments
	AllowedOrigins  []string

	TailscaleEnabled  bool
	TailscaleHostname string
	TailscaleAuthKey  string
	TailscaleFunnel   bool

	LogLevel  string
	LogFormat string
}

func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// renderConfig produces a YAML config with new JWT and cart secrets.
func renderConfig(opts initOptions) (string, error) {
	jwtSecret, err := randomSecret(48)
	if err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	hashKey, err := randomSecret(32)
	if err != nil {
		return "", fmt.Errorf("generating cart hash key: %w", err)
	}
	blockKey, err := randomSecret(32)
	if err != nil {
		return "", fmt.Errorf("generating cart block key: %w", err)
	}

	var cfg strings.Builder
	cfg.WriteString("# storefront configuration\n")
	cfg.WriteString("# Generated by storefront init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", opts.HTTPAddr))
	if opts.BaseURL != "" {
		cfg.WriteString(fmt.Sprintf("  base_url: %q\n", opts.BaseURL))
	}
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", opts.DBPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", jwtSecret))
	cfg.WriteString("  session_ttl: \"72h\"\n")
	cfg.WriteString(fmt.Sprintf("  cookie_secure: %t\n", opts.CookieSecure))
	cfg.WriteString("\n")

	cfg.WriteString("cart:\n")
	cfg.WriteString(fmt.Sprintf("  hash_key: %q\n", hashKey))
	cfg.WriteString(fmt.Sprintf("  block_key: %q\n", blockKey))
	cfg.WriteString("\n")

	cfg.WriteString("payments:\n")
	if opts.StripeSecretKey != "" {
		cfg.WriteString("  provider: \"stripe\"\n")
		cfg.WriteString(fmt.Sprintf("  stripe_secret_key: %q\n", opts.StripeSecretKey))
	} else {
		cfg.WriteString("  provider: \"none\"\n")
	}
	cfg.WriteString(fmt.Sprintf("  currency: %q\n", opts.Currency))
	cfg.WriteString("\n")

	if len(opts.AllowedOrigins) > 0 {
		cfg.WriteString("cors:\n")
		cfg.WriteString("  allowed_origins:\n")
		for _, origin := range opts.AllowedOrigins {
			cfg.WriteString(fmt.Sprintf("    - %q\n", origin))
		}
		cfg.WriteString("\n")
	}

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", opts.TailscaleEnabled))
	if opts.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", opts.TailscaleHostname))
		if opts.TailscaleAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", opts.TailscaleAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", opts.TailscaleFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", opts.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", opts.LogFormat))

	return cfg.String(), nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runInit(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Println("storefront configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var opts initOptions

	fmt.Println("\n--- Server Configuration ---")
	opts.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")
	opts.BaseURL = prompt(reader, "Public base URL (leave empty to derive from address)", "")
	opts.CookieSecure = isYes(prompt(reader, "Served over HTTPS (secure cookies)?", "no"))

	fmt.Println("\n--- Database Configuration ---")
	opts.DBPath = prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "shop.db"))

	fmt.Println("\n--- Payments ---")
	opts.Currency = prompt(reader, "Currency (ISO code)", "usd")
	opts.StripeSecretKey = prompt(reader, "Stripe secret key (leave empty to disable payments)", "")

	fmt.Println("\n--- CORS ---")
	opts.AllowedOrigins = splitList(prompt(reader, "Allowed origins for the storefront API (comma separated)", ""))

	fmt.Println("\n--- Tailscale Configuration ---")
	opts.TailscaleEnabled = isYes(prompt(reader, "Enable Tailscale?", "no"))
	if opts.TailscaleEnabled {
		opts.TailscaleHostname = prompt(reader, "Tailscale hostname", "storefront")
		opts.TailscaleAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		opts.TailscaleFunnel = isYes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	opts.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	opts.LogFormat = prompt(reader, "Log format (text/json)", "text")

	content, err := renderConfig(opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The file holds secrets.
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(opts.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  storefront serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
