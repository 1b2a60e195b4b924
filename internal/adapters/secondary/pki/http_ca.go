// Package pki provides an HTTP-transport-backed implementation of
// ports.CertificateAuthority, mapping IssueCertificate/GetIssuerCertificate
// onto the secrets service's pki/issue/<role> and pki/cert/<issuer>
// endpoints the way ports.CertificateAuthority's own doc comment describes.
package pki

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// HTTPCertificateAuthority issues and reads certificates through a
// ports.Transport, the same collaborator the session manager's auth
// strategies use to talk to the secrets service.
type HTTPCertificateAuthority struct {
	transport ports.Transport
}

// New builds an HTTPCertificateAuthority over transport.
func New(transport ports.Transport) *HTTPCertificateAuthority {
	return &HTTPCertificateAuthority{transport: transport}
}

type pkiIssueResponse struct {
	Data struct {
		Certificate  string `json:"certificate"`
		IssuingCA    string `json:"issuing_ca"`
		PrivateKey   string `json:"private_key"`
		CAChain      []string `json:"ca_chain"`
		SerialNumber string `json:"serial_number"`
	} `json:"data"`
}

// IssueCertificate implements ports.CertificateAuthority.
func (ca *HTTPCertificateAuthority) IssueCertificate(ctx context.Context, name, role string, req domain.CertificateRequest) (domain.IssuedCertificate, error) {
	body := map[string]any{
		"common_name": req.CommonName,
	}
	if len(req.AltNames) > 0 {
		body["alt_names"] = req.AltNames
	}
	if len(req.IPSANs) > 0 {
		body["ip_sans"] = req.IPSANs
	}
	if req.TTL > 0 {
		body["ttl"] = req.TTL.String()
	}

	resp, err := ca.transport.Do(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("pki/issue/%s", role),
		Body:   body,
	})
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	if !resp.IsSuccess() {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, fmt.Errorf("pki/issue/%s returned status %d", role, resp.Status))
	}

	var env pkiIssueResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, fmt.Errorf("malformed pki/issue response: %w", err))
	}

	cert, err := parseCertificatePEM(env.Data.Certificate)
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	key, err := parsePrivateKeyPEM(env.Data.PrivateKey)
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	chain, err := parseCertificateChainPEM(env.Data.CAChain)
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	if env.Data.IssuingCA != "" && len(chain) == 0 {
		if issuing, issuingErr := parseCertificatePEM(env.Data.IssuingCA); issuingErr == nil {
			chain = []*x509.Certificate{issuing}
		}
	}

	return domain.IssuedCertificate{
		Cert:         cert,
		PrivateKey:   key,
		Chain:        chain,
		ServerSerial: env.Data.SerialNumber,
	}, nil
}

type pkiCertResponse struct {
	Data struct {
		Certificate string `json:"certificate"`
	} `json:"data"`
}

// GetIssuerCertificate implements ports.CertificateAuthority.
func (ca *HTTPCertificateAuthority) GetIssuerCertificate(ctx context.Context, name, issuer string) (domain.IssuedCertificate, error) {
	resp, err := ca.transport.Do(ctx, ports.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("pki/cert/%s", issuer),
	})
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	if !resp.IsSuccess() {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, fmt.Errorf("pki/cert/%s returned status %d", issuer, resp.Status))
	}

	var env pkiCertResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, fmt.Errorf("malformed pki/cert response: %w", err))
	}

	cert, err := parseCertificatePEM(env.Data.Certificate)
	if err != nil {
		return domain.IssuedCertificate{}, vaulterrors.NewCertificateError(name, err)
	}
	return domain.IssuedCertificate{Cert: cert}, nil
}

func parseCertificatePEM(pemStr string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in certificate data")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	return cert, nil
}

func parseCertificateChainPEM(pemStrs []string) ([]*x509.Certificate, error) {
	chain := make([]*x509.Certificate, 0, len(pemStrs))
	for _, s := range pemStrs {
		cert, err := parseCertificatePEM(s)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

func parsePrivateKeyPEM(pemStr string) (crypto.Signer, error) {
	if pemStr == "" {
		return nil, nil
	}
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key data")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("PKCS8 private key does not implement crypto.Signer")
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unrecognized private key encoding")
}

var _ ports.CertificateAuthority = (*HTTPCertificateAuthority)(nil)
