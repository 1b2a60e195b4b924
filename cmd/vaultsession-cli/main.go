// Package main provides the vaultsession CLI tool for operating a
// secrets-service client's session token and certificate lifecycle.
//
// Core functionality includes:
//   - Configuration loading and validation
//   - Session token inspection
//   - Registered certificate inspection
//
// This is a production CLI binary built from cmd/vaultsession-cli according
// to Go project layout conventions for production command-line tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sufield/vaultsession/internal/cli"
)

// Exit codes - any error not classified below (usage errors included) exits 1
const (
	exitOK     = 0
	exitConfig = 3 // Configuration/business logic errors
	exitAuth   = 4 // Authentication errors
)

// main is the entry point for the vaultsession CLI tool.
// It sets up signal handling, executes the CLI with context, and handles errors with appropriate exit codes.
func main() {
	// Create a context that cancels on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Execute the CLI with context - Cobra handles most error display
	if err := cli.ExecuteContext(ctx); err != nil {
		// Only handle business logic errors - Cobra handles usage/flag errors
		code := exitOK

		// Check for specific business logic errors
		switch {
		case errors.Is(err, cli.ErrConfig):
			code = exitConfig
		case errors.Is(err, cli.ErrAuth):
			code = exitAuth
		case errors.Is(err, context.Canceled):
			// Graceful shutdown via signal - no error message needed
			os.Exit(exitOK)
		default:
			// For any other error, Cobra has already printed it
			code = 1
		}

		// Cobra has already printed every error; config and auth errors are
		// printed once more here in redacted form
		if code != 0 && !errors.Is(err, context.Canceled) {
			if errors.Is(err, cli.ErrConfig) || errors.Is(err, cli.ErrAuth) {
				redactedError := cli.RedactError(err)
				fmt.Fprintf(os.Stderr, "Error: %s\n", redactedError)
			}
		}

		os.Exit(code)
	}
}
