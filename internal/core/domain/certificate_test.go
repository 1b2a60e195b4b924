package domain_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sufield/vaultsession/internal/core/domain"
)

func TestFormatSerial(t *testing.T) {
	tests := []struct {
		name   string
		serial *big.Int
		want   string
	}{
		{"nil serial", nil, "00"},
		{"zero serial", big.NewInt(0), "00"},
		{"single byte", big.NewInt(0x0a), "0a"},
		{"single high byte", big.NewInt(0x00ff), "ff"},
		{"multi byte", big.NewInt(0x01020304), "01:02:03:04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.FormatSerial(tt.serial))
		})
	}
}

func TestRequestedCertificate_EqualByNameOnly(t *testing.T) {
	a := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{CommonName: "web.internal"})
	b := domain.NewRequestedBundle("web", "role-b", domain.CertificateRequest{CommonName: "other.internal"})
	c := domain.NewRequestedTrustAnchor("other", "issuer")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestRequestedCertificate_Variants(t *testing.T) {
	bundle := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{TTL: time.Hour})
	assert.Equal(t, domain.RequestedCertBundle, bundle.Kind())
	assert.Equal(t, "role-a", bundle.Role())

	anchor := domain.NewRequestedTrustAnchor("ca", "root")
	assert.Equal(t, domain.RequestedCertTrustAnchor, anchor.Kind())
	assert.Equal(t, "root", anchor.Issuer())
}

func TestCertificateHolder_IsExpiringSoon(t *testing.T) {
	var h *domain.CertificateHolder
	assert.True(t, h.IsExpiringSoon(time.Now(), time.Minute), "nil holder is always expiring")
}

func TestCertificateHolder_SerialNumber_PrefersServerSerial(t *testing.T) {
	issued := domain.IssuedCertificate{ServerSerial: "ab:cd"}
	h := &domain.CertificateHolder{Certificate: issued}
	assert.Equal(t, "ab:cd", h.SerialNumber())
}
