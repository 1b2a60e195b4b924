package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClientConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildClientFromFile_EmptyPathIsAConfigError(t *testing.T) {
	_, err := buildClientFromFile(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuildClientFromFile_MissingAddressIsAConfigError(t *testing.T) {
	path := writeClientConfig(t, `
manager:
  renewal_threshold: 30s
auth:
  method: token
  token: s.abcdef
`)
	_, err := buildClientFromFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuildClientFromFile_UnsupportedRuntimeCredentialMethod(t *testing.T) {
	path := writeClientConfig(t, fmt.Sprintf(`
manager:
  renewal_threshold: 30s
  address: %s
auth:
  method: aws
`, "http://127.0.0.1:1"))
	_, err := buildClientFromFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "credential signer")
}

func TestBuildClientFromFile_TokenMethod_AuthenticatesAgainstTestServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/lookup-self" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"ttl": 3600, "renewable": true, "type": "service", "accessor": "acc-1"},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	path := writeClientConfig(t, fmt.Sprintf(`
manager:
  renewal_threshold: 30s
  address: %s
auth:
  method: token
  token: s.abcdef
`, server.URL))

	built, err := buildClientFromFile(context.Background(), path)
	require.NoError(t, err)
	defer built.client.Close(context.Background())

	tok, err := built.client.SessionToken(context.Background())
	require.NoError(t, err)
	assert.True(t, tok.IsRenewable())
	assert.Equal(t, "acc-1", tok.Accessor())
}

func TestBuildClientFromFile_KubernetesMethodWithoutTokenPathIsAConfigError(t *testing.T) {
	path := writeClientConfig(t, `
manager:
  renewal_threshold: 30s
  address: http://127.0.0.1:1
auth:
  method: kubernetes
  role: web
`)
	_, err := buildClientFromFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "service_account_token_path")
}
