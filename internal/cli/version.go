package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information - injected at compile time via ldflags/x_defs
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// VersionInfo contains version and build information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"os"`
	GOARCH    string `json:"arch"`
}

// GetVersionInfo returns the binary's version information.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version and build information for the vaultsession CLI.",
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("%w: failed to get format flag: %v", ErrUsage, err)
	}

	info := GetVersionInfo()

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(info); err != nil {
			return fmt.Errorf("%w: failed to encode version info as JSON: %v", ErrInternal, err)
		}
	case "text":
		fmt.Printf("Version: %s\n", info.Version)
		fmt.Printf("Commit: %s\n", info.Commit)
		fmt.Printf("Build Date: %s\n", info.BuildDate)
		fmt.Printf("Go Version: %s\n", info.GoVersion)
		fmt.Printf("OS/Arch: %s/%s\n", info.GOOS, info.GOARCH)
	default:
		return fmt.Errorf("%w: unsupported format %q, use 'text' or 'json'", ErrUsage, format)
	}

	return nil
}

func init() {
	versionCmd.Flags().String("format", "text", "Output format (text|json)")
	rootCmd.AddCommand(versionCmd)
}
