package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/vaultsession/internal/adapters/secondary/transport"
	"github.com/sufield/vaultsession/internal/core/ports"
)

func TestHTTPTransport_Do_SendsMethodPathHeadersAndBody(t *testing.T) {
	var gotMethod, gotPath, gotHeader, gotRequestID string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Vault-Token")
		gotRequestID = r.Header.Get("X-Vault-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(srv.URL+"/", nil)
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), ports.Request{
		Method:  http.MethodPost,
		Path:    "auth/approle/login",
		Headers: map[string]string{"X-Vault-Token": "s.abc"},
		Body:    map[string]any{"role_id": "r"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/auth/approle/login", gotPath)
	assert.Equal(t, "s.abc", gotHeader)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "r", gotBody["role_id"])
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, string(resp.Body), "ok")
}

func TestHTTPTransport_Do_RequestIDVariesPerCall(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Vault-Request-Id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(srv.URL, nil)
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "a"})
	require.NoError(t, err)
	_, err = tr.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "b"})
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestHTTPTransport_Do_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(srv.URL, nil)
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "auth/token/lookup-self"})
	require.NoError(t, err, "a non-2xx response is not a transport error")
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, 403, resp.Status)
}

func TestHTTPTransport_Do_UnreachableServerIsATransportError(t *testing.T) {
	tr, err := transport.NewHTTPTransport("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "auth/token/lookup-self"})
	assert.Error(t, err)
}

func TestHTTPTransport_DoAsync_ResolvesThroughFuture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"ttl":60}}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(srv.URL, nil)
	require.NoError(t, err)

	fut := tr.DoAsync(context.Background(), ports.Request{Method: http.MethodGet, Path: "auth/token/lookup-self"})
	resp, err := fut.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestHTTPTransport_NewHTTPTransport_RejectsInvalidURL(t *testing.T) {
	_, err := transport.NewHTTPTransport("://not-a-url", nil)
	assert.Error(t, err)
}
