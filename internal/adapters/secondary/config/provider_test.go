package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileProvider(t *testing.T) {
	provider := NewFileProvider()
	require.NotNil(t, provider)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileProvider_LoadConfiguration(t *testing.T) {
	provider := NewFileProvider()
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		_, err := provider.LoadConfiguration(ctx, "")
		assert.Error(t, err)
	})

	t.Run("nonexistent file", func(t *testing.T) {
		_, err := provider.LoadConfiguration(ctx, "/nonexistent/path/config.yaml")
		assert.Error(t, err)
	})

	t.Run("valid token config", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
  lease_strategy: drop_on_error
auth:
  method: token
  token: s.abcdef
`)
		cfg, err := provider.LoadConfiguration(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "token", cfg.Auth.Method)
		assert.Equal(t, "s.abcdef", cfg.Auth.Token)
		d, err := cfg.Manager.Duration()
		require.NoError(t, err)
		assert.Equal(t, "30s", d.String())
	})

	t.Run("missing required auth method fails validation", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
auth:
  token: s.abcdef
`)
		_, err := provider.LoadConfiguration(ctx, path)
		assert.Error(t, err)
	})

	t.Run("unknown auth method fails validation", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
auth:
  method: carrier-pigeon
`)
		_, err := provider.LoadConfiguration(ctx, path)
		assert.Error(t, err)
	})

	t.Run("address and certificates are optional but parsed when present", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
  address: https://vault.internal:8200
auth:
  method: kubernetes
  role: web
  service_account_token_path: /var/run/secrets/kubernetes.io/serviceaccount/token
certificates:
  - name: web
    kind: bundle
    role: web-role
    common_name: web.internal
  - name: root-ca
    kind: trust_anchor
    issuer: default
`)
		cfg, err := provider.LoadConfiguration(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "https://vault.internal:8200", cfg.Manager.Address)
		assert.Equal(t, "/var/run/secrets/kubernetes.io/serviceaccount/token", cfg.Auth.ServiceAccountTokenPath)
		require.Len(t, cfg.Certificates, 2)
		assert.Equal(t, "bundle", cfg.Certificates[0].Kind)
		assert.Equal(t, "trust_anchor", cfg.Certificates[1].Kind)
	})

	t.Run("invalid certificate kind fails validation", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
auth:
  method: token
  token: s.abcdef
certificates:
  - name: web
    kind: bogus
`)
		_, err := provider.LoadConfiguration(ctx, path)
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, `invalid: yaml: content: [[[`)
		_, err := provider.LoadConfiguration(ctx, path)
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		path := writeTempConfig(t, `
manager:
  renewal_threshold: 30s
auth:
  method: token
  token: s.abcdef
`)
		canceledCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.LoadConfiguration(canceledCtx, path)
		assert.Error(t, err)
	})
}

func TestFileProvider_GetDefaultConfiguration(t *testing.T) {
	provider := NewFileProvider()
	cfg := provider.GetDefaultConfiguration(context.Background())
	require.NotNil(t, cfg)
	assert.Equal(t, "token", cfg.Auth.Method)
	assert.NoError(t, validate.Struct(cfg))
}

func BenchmarkFileProvider_LoadConfiguration(b *testing.B) {
	provider := NewFileProvider()
	ctx := context.Background()

	dir := b.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
manager:
  renewal_threshold: 30s
auth:
  method: token
  token: s.abcdef
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		b.Fatalf("failed to write config file: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := provider.LoadConfiguration(ctx, path); err != nil {
			b.Fatalf("LoadConfiguration failed: %v", err)
		}
	}
}
