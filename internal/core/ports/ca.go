package ports

import (
	"context"

	"github.com/sufield/vaultsession/internal/core/domain"
)

// CertificateAuthority is the abstract capability the certificate
// container drives to obtain certificate material. A concrete
// implementation maps these calls onto the server's PKI endpoints
// (pki/issue/<role>, pki/cert/<issuer>); that mapping is not part of the
// core.
type CertificateAuthority interface {
	// IssueCertificate services a Bundle registration: a leaf certificate,
	// its private key, and chain issued under role.
	IssueCertificate(ctx context.Context, name, role string, request domain.CertificateRequest) (domain.IssuedCertificate, error)
	// GetIssuerCertificate services a TrustAnchor registration: the named
	// issuer's own CA certificate, with no private key.
	GetIssuerCertificate(ctx context.Context, name, issuer string) (domain.IssuedCertificate, error)
}
