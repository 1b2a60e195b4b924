package domain

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// CancelFunc cancels a scheduled task. Calling it more than once, or after
// the task has already fired, is a no-op.
type CancelFunc func()

// RequestedCertificateKind discriminates the two RequestedCertificate
// variants.
type RequestedCertificateKind string

const (
	RequestedCertBundle      RequestedCertificateKind = "bundle"
	RequestedCertTrustAnchor RequestedCertificateKind = "trust_anchor"
)

// CertificateRequest carries the issuance parameters for a Bundle
// registration. The core never interprets these fields; it hands them
// verbatim to the abstract certificate authority.
type CertificateRequest struct {
	CommonName string
	AltNames   []string
	IPSANs     []string
	TTL        time.Duration
}

// RequestedCertificate identifies a certificate the container manages.
// Identity is by Name; two RequestedCertificate values with the same name
// are treated as the same registration regardless of their other fields.
type RequestedCertificate struct {
	kind    RequestedCertificateKind
	name    string
	role    string
	request CertificateRequest
	issuer  string
}

// NewRequestedBundle builds a Bundle-variant registration: a leaf
// certificate (plus private key and chain) issued under role.
func NewRequestedBundle(name, role string, request CertificateRequest) RequestedCertificate {
	return RequestedCertificate{kind: RequestedCertBundle, name: name, role: role, request: request}
}

// NewRequestedTrustAnchor builds a TrustAnchor-variant registration: the
// named issuer's own CA certificate, with no private key.
func NewRequestedTrustAnchor(name, issuer string) RequestedCertificate {
	return RequestedCertificate{kind: RequestedCertTrustAnchor, name: name, issuer: issuer}
}

func (r RequestedCertificate) Name() string                  { return r.name }
func (r RequestedCertificate) Kind() RequestedCertificateKind { return r.kind }
func (r RequestedCertificate) Role() string                  { return r.role }
func (r RequestedCertificate) Request() CertificateRequest    { return r.request }
func (r RequestedCertificate) Issuer() string                { return r.issuer }

// Equal compares two registrations by name; name is the identity.
func (r RequestedCertificate) Equal(other RequestedCertificate) bool {
	return r.name == other.name
}

// IssuedCertificate is the entity an abstract certificate authority returns
// from IssueCertificate or GetIssuerCertificate: a parsed X.509 certificate,
// its private key (nil for a TrustAnchor, which has none), any chain, and
// optionally a server-provided serial string to use verbatim.
type IssuedCertificate struct {
	Cert           *x509.Certificate
	PrivateKey     crypto.Signer
	Chain          []*x509.Certificate
	ServerSerial   string // if non-empty, used verbatim in place of the derived serial
}

// CertificateHolder is the container's internal record of the current
// certificate material for a registration.
type CertificateHolder struct {
	Certificate IssuedCertificate
	ParsedX509  *x509.Certificate
	Expiry      time.Time
}

// NewCertificateHolder builds a holder from an issued certificate, taking
// its expiry from the parsed X.509's NotAfter.
func NewCertificateHolder(issued IssuedCertificate) *CertificateHolder {
	return &CertificateHolder{
		Certificate: issued,
		ParsedX509:  issued.Cert,
		Expiry:      issued.Cert.NotAfter,
	}
}

// IsExpiringSoon returns true if the holder's certificate expires within
// the given duration of now.
func (h *CertificateHolder) IsExpiringSoon(now time.Time, threshold time.Duration) bool {
	if h == nil || h.ParsedX509 == nil {
		return true
	}
	return now.Add(threshold).After(h.Expiry)
}

// SerialNumber formats the holder's serial per the server-provided-verbatim
// rule, falling back to the derived X.509 serial.
func (h *CertificateHolder) SerialNumber() string {
	if h.Certificate.ServerSerial != "" {
		return h.Certificate.ServerSerial
	}
	return FormatSerial(h.ParsedX509.SerialNumber)
}

// FormatSerial derives a certificate serial-number string from an X.509
// serial: big-endian bytes, leading 0x00 bytes stripped, remaining bytes
// hex-encoded two-digits-lowercase and colon-joined; an all-zero serial
// formats as "00".
func FormatSerial(serial *big.Int) string {
	if serial == nil {
		return "00"
	}
	b := serial.Bytes()
	i := 0
	for i < len(b) && b[i] == 0x00 {
		i++
	}
	b = b[i:]
	if len(b) == 0 {
		return "00"
	}
	parts := make([]string, len(b))
	for i, by := range b {
		parts[i] = fmt.Sprintf("%02x", by)
	}
	return strings.Join(parts, ":")
}

// ScheduledRotation tracks the in-flight rotation task for a registration.
// Replacing the current holder must cancel the outgoing rotation before
// installing a new one.
type ScheduledRotation struct {
	RequestedCert RequestedCertificate
	Holder        *CertificateHolder
	CancelHandle  CancelFunc
}
