package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shelfgate/shelfgate/internal/config"
	"github.com/shelfgate/shelfgate/internal/entrypoint"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]

	switch command {
	case "check-upstream":
		if err := checkUpstream(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// checkUpstream performs a one-shot status probe against the configured
// media-library server.
func checkUpstream() error {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("upstream %s unreachable: %w", cfg.Upstream.BaseURL, err)
	}

	fmt.Printf("Upstream %s is reachable\n", cfg.Upstream.BaseURL)
	fmt.Printf("  App:     %s\n", status.App)
	fmt.Printf("  Version: %s\n", status.ServerVersion)
	fmt.Printf("  Init:    %t\n", status.IsInit)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve           Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  check-upstream  Probe the configured media-library server and exit\n")
}
