// ABOUTME: Entry point for the storefront server
// ABOUTME: Dispatches the serve, init, bootstrap, health and ready subcommands

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/storefront/internal/config"
	"github.com/2389/storefront/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                  __                 _
 ___| |_ ___  _ __ ___ / _|_ __ ___  _ __ | |_
/ __| __/ _ \| '__/ _ \ |_| '__/ _ \| '_ \| __|
\__ \ || (_) | | |  __/  _| | | (_) | | | | |_
|___/\__\___/|_|  \___|_| |_|  \___/|_| |_|\__|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: storefront <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                              Start the storefront server")
		fmt.Println("  init                               Create a new config file interactively")
		fmt.Println("  bootstrap --name NAME --email ADDR Create the first admin account")
		fmt.Println("  health                             Check server liveness")
		fmt.Println("  ready                              Check server readiness")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin)
	case "bootstrap":
		err = runBootstrap(ctx, os.Args[2:], os.Stdin)
	case "health":
		err = runProbe(ctx, "/health", os.Stdout)
	case "ready":
		err = runProbe(ctx, "/health/ready", os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Shop:      %s\n", cfg.Server.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Payments:  %s", cfg.Payments.Provider)
	if cfg.Payments.Provider == "none" {
		yellow.Print(" [checkouts are not charged]")
	}
	fmt.Println()

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if !cfg.Auth.SecureCookies() {
		yellow.Println("    ! cookie_secure is off; use only for plain-HTTP development")
	}

	fmt.Println()

	logger.Info("starting storefront",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"payments", cfg.Payments.Provider,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(httpAddr, path string) string {
	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return "http://" + httpAddr + path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

// runProbe requests a health endpoint on the configured address and prints
// the response body.
func runProbe(ctx context.Context, path string, out io.Writer) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return probe(ctx, localURL(cfg.Server.HTTPAddr, path), out)
}

func probe(ctx context.Context, url string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Fprintln(out, string(body))
	return nil
}
