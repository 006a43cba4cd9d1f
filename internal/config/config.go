// ABOUTME: Configuration loading and parsing for the storefront server
// ABOUTME: Supports YAML or TOML files with environment variable expansion, defaults and validation

package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength is the minimum signing secret size in bytes.
const MinJWTSecretLength = 32

// Defaults applied by Load when a value is omitted.
const (
	DefaultSessionTTL = 72 * time.Hour
	DefaultCurrency   = "usd"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Config represents the complete storefront configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Cart      CartConfig      `yaml:"cart" toml:"cart"`
	Payments  PaymentsConfig  `yaml:"payments" toml:"payments"`
	CORS      CORSConfig      `yaml:"cors" toml:"cors"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// BaseURL is the external URL of the shop, used to build payment
	// redirect URLs. Defaults to http://<http_addr>.
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds session authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`

	SessionTTL    time.Duration `yaml:"-" toml:"-"`
	SessionTTLRaw string        `yaml:"session_ttl" toml:"session_ttl"`

	// CookieSecure sets the Secure attribute on the session cookie.
	// Defaults to true; disable only for plain-HTTP development.
	CookieSecure *bool `yaml:"cookie_secure" toml:"cookie_secure"`
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (a AuthConfig) SecureCookies() bool {
	return a.CookieSecure == nil || *a.CookieSecure
}

// CartConfig holds the keys for the signed and encrypted cart cookie.
// Both are base64 encoded.
type CartConfig struct {
	HashKeyRaw  string `yaml:"hash_key" toml:"hash_key"`
	BlockKeyRaw string `yaml:"block_key" toml:"block_key"`

	HashKey  []byte `yaml:"-" toml:"-"`
	BlockKey []byte `yaml:"-" toml:"-"`
}

// PaymentsConfig holds payment gateway configuration
type PaymentsConfig struct {
	// Provider is "stripe" or "none". "none" marks checkouts paid
	// immediately and is meant for development.
	Provider        string `yaml:"provider" toml:"provider"`
	StripeSecretKey string `yaml:"stripe_secret_key" toml:"stripe_secret_key"`
	Currency        string `yaml:"currency" toml:"currency"`
	SuccessURL      string `yaml:"success_url" toml:"success_url"`
	CancelURL       string `yaml:"cancel_url" toml:"cancel_url"`
}

// CORSConfig holds CORS settings for the storefront API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultPath returns the config file location.
// Priority: STOREFRONT_CONFIG env var > XDG_CONFIG_HOME/storefront/config.yaml > ~/.config/storefront/config.yaml
func DefaultPath() string {
	if p := os.Getenv("STOREFRONT_CONFIG"); p != "" {
		return p
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "storefront", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes, defaults and validates configuration bytes.
func Parse(data []byte, isTOML bool) (*Config, error) {
	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := decodeKeys(&cfg); err != nil {
		return nil, fmt.Errorf("decoding keys: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.SessionTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
		cfg.Auth.SessionTTL = d
	}
	return nil
}

func decodeKeys(cfg *Config) error {
	var err error
	if cfg.Cart.HashKeyRaw != "" {
		if cfg.Cart.HashKey, err = base64.StdEncoding.DecodeString(cfg.Cart.HashKeyRaw); err != nil {
			return fmt.Errorf("cart.hash_key is not valid base64: %w", err)
		}
	}
	if cfg.Cart.BlockKeyRaw != "" {
		if cfg.Cart.BlockKey, err = base64.StdEncoding.DecodeString(cfg.Cart.BlockKeyRaw); err != nil {
			return fmt.Errorf("cart.block_key is not valid base64: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Auth.SessionTTLRaw == "" {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Payments.Provider == "" {
		c.Payments.Provider = "none"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = DefaultCurrency
	}
	c.Payments.Currency = strings.ToLower(c.Payments.Currency)

	if c.Server.BaseURL == "" && c.Server.HTTPAddr != "" {
		host := c.Server.HTTPAddr
		if strings.HasPrefix(host, ":") || strings.HasPrefix(host, "0.0.0.0:") {
			host = "localhost" + host[strings.Index(host, ":"):]
		}
		c.Server.BaseURL = "http://" + host
	}
	if c.Server.BaseURL == "" && c.Tailscale.Enabled && c.Tailscale.Hostname != "" {
		c.Server.BaseURL = "https://" + c.Tailscale.Hostname
	}
	c.Server.BaseURL = strings.TrimSuffix(c.Server.BaseURL, "/")

	if c.Payments.SuccessURL == "" {
		c.Payments.SuccessURL = c.Server.BaseURL + "/api/checkout/confirm?session_id={CHECKOUT_SESSION_ID}"
	}
	if c.Payments.CancelURL == "" {
		c.Payments.CancelURL = c.Server.BaseURL + "/cart"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("server.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server.base_url must use http or https scheme")
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}

	if len(c.Cart.HashKey) < 32 {
		return fmt.Errorf("cart.hash_key must decode to at least 32 bytes")
	}
	switch len(c.Cart.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("cart.block_key must decode to 16, 24 or 32 bytes")
	}

	switch c.Payments.Provider {
	case "none":
	case "stripe":
		if c.Payments.StripeSecretKey == "" {
			return fmt.Errorf("payments.stripe_secret_key is required for the stripe provider")
		}
	default:
		return fmt.Errorf("payments.provider must be \"stripe\" or \"none\", got %q", c.Payments.Provider)
	}
	if len(c.Payments.Currency) != 3 {
		return fmt.Errorf("payments.currency must be a three-letter ISO code")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}
