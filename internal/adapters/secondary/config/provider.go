// Package config loads vaultsession's manager/auth configuration from a
// YAML file on disk.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
)

var validate = validator.New() //nolint:gochecknoglobals // validator.New() is safe for concurrent reuse

// FileProvider loads a ports.FileConfig from a YAML file.
type FileProvider struct{}

// NewFileProvider creates a FileProvider.
func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

// LoadConfiguration reads, parses, and validates the YAML document at path.
func (p *FileProvider) LoadConfiguration(ctx context.Context, path string) (*ports.FileConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, vaulterrors.NewConfigurationError("configuration file path cannot be empty", nil)
	}

	cleanPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, vaulterrors.NewConfigurationError(fmt.Sprintf("failed to resolve config file path %s", path), err)
	}

	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, vaulterrors.NewConfigurationError("configuration loading canceled", ctx.Err())
		default:
		}
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, vaulterrors.NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var cfg ports.FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, vaulterrors.NewConfigurationError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, vaulterrors.NewConfigurationError(fmt.Sprintf("invalid configuration in file %s", path), err)
	}

	return &cfg, nil
}

// GetDefaultConfiguration returns a minimal, conservative default: a static
// token auth method the caller is expected to override, and a renewal
// threshold matched to the session manager's own zero-value behavior.
func (p *FileProvider) GetDefaultConfiguration(ctx context.Context) *ports.FileConfig {
	return &ports.FileConfig{
		Manager: ports.ManagerFileConfig{
			RenewalThreshold: "5s",
			LeaseStrategy:    "drop_on_error",
		},
		Auth: ports.AuthFileConfig{
			Method: "token",
		},
	}
}
