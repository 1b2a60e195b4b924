package cli

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// selfSignedCertPEM builds a throwaway self-signed leaf certificate and its
// PKCS8 private key, both PEM-encoded, for tests that stand in for a PKI
// issuance response.
func selfSignedCertPEM(t *testing.T, cn string) (certPEM, keyPEM string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

func TestCertificateFromConfig_Bundle(t *testing.T) {
	req, err := certificateFromConfig(ports.CertificateFileConfig{
		Name: "web", Kind: "bundle", Role: "web-role", CommonName: "web.internal", TTL: "1h",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestedCertBundle, req.Kind())
	assert.Equal(t, "web-role", req.Role())
	assert.Equal(t, time.Hour, req.Request().TTL)
}

func TestCertificateFromConfig_TrustAnchor(t *testing.T) {
	req, err := certificateFromConfig(ports.CertificateFileConfig{Name: "root-ca", Kind: "trust_anchor", Issuer: "default"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestedCertTrustAnchor, req.Kind())
	assert.Equal(t, "default", req.Issuer())
}

func TestCertificateFromConfig_UnknownKindErrors(t *testing.T) {
	_, err := certificateFromConfig(ports.CertificateFileConfig{Name: "web", Kind: "bogus"})
	assert.Error(t, err)
}

func TestCertificateFromConfig_InvalidTTLErrors(t *testing.T) {
	_, err := certificateFromConfig(ports.CertificateFileConfig{Name: "web", Kind: "bundle", Role: "r", TTL: "not-a-duration"})
	assert.Error(t, err)
}

func TestRunCertList_NoCertificatesConfiguredSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

	globalConfig = path
	defer func() { globalConfig = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runCertList(cmd, nil))
}

func TestRunCertList_ObtainsAndListsConfiguredCertificates(t *testing.T) {
	certPEM, privPEM := selfSignedCertPEM(t, "web.internal")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pki/issue/web-role":
			fmt.Fprintf(w, `{"data":{"certificate":%q,"private_key":%q,"serial_number":"ab:cd"}}`, certPEM, privPEM)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	path := writeClientConfig(t, fmt.Sprintf(`
manager:
  renewal_threshold: 30s
  address: %s
auth:
  method: token
  token: s.abcdef
certificates:
  - name: web
    kind: bundle
    role: web-role
    common_name: web.internal
`, server.URL))

	globalConfig = path
	defer func() { globalConfig = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runCertList(cmd, nil))
}
