package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Global flags
var (
	globalTimeout time.Duration
	globalConfig  string
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command pattern
	Use:   "vaultsession",
	Short: "Session-token and certificate lifecycle CLI for a secrets-service client",
	Long: `Session-token and certificate lifecycle CLI for a secrets-service client.

vaultsession authenticates against a secrets service, keeps the resulting
session token renewed (or re-authenticates when its lease runs out), and
rotates any registered certificates ahead of their expiry.

The CLI provides commands for inspecting the current session token and the
certificates a running process has registered.`,
	Version: Version,
}

// Execute runs the CLI without context (for backward compatibility).
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with the provided context.
func ExecuteContext(ctx context.Context) error {
	// Apply global timeout if set
	if globalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, globalTimeout)
		defer cancel()
	}

	rootCmd.SetContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("failed to execute command: %w", err)
	}
	return nil
}

// GetOutputWriter returns the writer subcommands print their results to.
func GetOutputWriter() io.Writer {
	return os.Stdout
}

// GetConfigPath returns the --config flag's value.
func GetConfigPath() string {
	return globalConfig
}

func init() { //nolint:gochecknoinits // Cobra requires init for command setup
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().DurationVar(&globalTimeout, "timeout", 30*time.Second, "Global timeout for operations")
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "Path to a vaultsession YAML configuration file")

	// Add version flag at root level
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
