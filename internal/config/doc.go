// Package config handles configuration loading for the storefront server.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment
// variable expansion, defaults and validation. Files ending in .toml are
// decoded as TOML; everything else is YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STOREFRONT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/storefront/config.yaml
//  3. ~/.config/storefront/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${STOREFRONT_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://shop.example.com"   # defaults to http://<http_addr>
//
//	database:
//	  path: "/var/lib/storefront/shop.db"
//
//	auth:
//	  jwt_secret: "${STOREFRONT_JWT_SECRET}" # at least 32 bytes
//	  session_ttl: "72h"
//	  cookie_secure: true
//
//	cart:
//	  hash_key: "<base64, 32+ bytes>"
//	  block_key: "<base64, 16/24/32 bytes, optional>"
//
//	payments:
//	  provider: "stripe"                     # or "none"
//	  stripe_secret_key: "${STRIPE_SECRET_KEY}"
//	  currency: "usd"
//
//	cors:
//	  allowed_origins: ["https://shop.example.com"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "shop"
//	  funnel: false
//
//	logging:
//	  level: "info"                          # debug, info, warn, error
//	  format: "text"                         # text or json
//
// Durations use time.ParseDuration syntax.
package config
