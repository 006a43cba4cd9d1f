// ABOUTME: Command-line creation of the first admin account
// ABOUTME: Equivalent to POST /admin/setup for headless deployments

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/storefront/internal/auth"
	"github.com/2389/storefront/internal/config"
	"github.com/2389/storefront/internal/store"
)

type bootstrapArgs struct {
	name  string
	email string
}

// parseBootstrapArgs supports both "--flag value" and "--flag=value".
func parseBootstrapArgs(args []string) (bootstrapArgs, error) {
	var out bootstrapArgs
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var target *string
		var flag string
		switch {
		case arg == "--name" || arg == "-n":
			target, flag = &out.name, arg
		case arg == "--email" || arg == "-e":
			target, flag = &out.email, arg
		case strings.HasPrefix(arg, "--name="):
			out.name = strings.TrimPrefix(arg, "--name=")
			continue
		case strings.HasPrefix(arg, "--email="):
			out.email = strings.TrimPrefix(arg, "--email=")
			continue
		case strings.HasPrefix(arg, "-"):
			return out, fmt.Errorf("unknown flag: %s", arg)
		default:
			return out, fmt.Errorf("unexpected argument: %s", arg)
		}
		if i+1 >= len(args) {
			return out, fmt.Errorf("%s requires a value", flag)
		}
		*target = args[i+1]
		i++
	}

	if strings.TrimSpace(out.name) == "" {
		return out, errors.New("--name flag is required")
	}
	if strings.TrimSpace(out.email) == "" {
		return out, errors.New("--email flag is required")
	}
	return out, nil
}

// readPassword takes STOREFRONT_ADMIN_PASSWORD or the first line of in.
func readPassword(in io.Reader) (string, error) {
	if p := os.Getenv("STOREFRONT_ADMIN_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Print("Admin password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runBootstrap(ctx context.Context, args []string, in io.Reader) error {
	parsed, err := parseBootstrapArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	password, err := readPassword(in)
	if err != nil {
		return err
	}

	claims, err := bootstrapAdmin(ctx, cfg, parsed.name, parsed.email, password)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Admin Account")
	cyan.Println("  -------------")
	fmt.Printf("  ID:     %s\n", claims.ID)
	fmt.Printf("  Name:   %s\n", claims.Name)
	fmt.Printf("  Email:  %s\n", claims.Email)
	fmt.Printf("  Login:  %s/admin/login\n", cfg.Server.BaseURL)
	fmt.Println()
	return nil
}

// bootstrapAdmin creates the first admin directly in the database.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, name, email, password string) (auth.Claims, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	issuer, err := auth.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("creating token issuer: %w", err)
	}
	svc := auth.NewService(s, issuer, auth.NewCookieCarrier(cfg.Auth.SecureCookies(), nil), nil, slog.Default())

	res, err := svc.Setup(ctx, name, email, password)
	if errors.Is(err, auth.ErrSetupComplete) {
		return auth.Claims{}, errors.New("bootstrap already complete: an admin account exists")
	}
	if err != nil {
		return auth.Claims{}, fmt.Errorf("creating admin: %w", err)
	}
	return res.Claims, nil
}
