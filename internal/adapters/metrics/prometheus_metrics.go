// Package metrics provides Prometheus-based implementations of session and
// certificate lifecycle metrics reporting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sufield/vaultsession/internal/core/domain"
)

var (
	loginCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultsession_logins_total",
		Help: "Total number of completed logins, by result",
	}, []string{"result"}) // result: success, failure

	renewalCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultsession_renewals_total",
		Help: "Total number of token renewal attempts, by result",
	}, []string{"result"}) // result: renewed, relogin, failed

	revocationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultsession_revocations_total",
		Help: "Total number of token revocation attempts, by result",
	}, []string{"result"}) // result: success, failure

	certificateRotationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultsession_certificate_rotations_total",
		Help: "Total number of certificate obtain/rotate attempts, by certificate name and result",
	}, []string{"name", "result"}) // result: obtained, rotated, error

	leaseGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultsession_session_token_lease_seconds",
		Help: "Lease duration in seconds of the most recently cached session token",
	})
)

// PrometheusListener subscribes to the event bus and records lifecycle
// events as Prometheus metrics. It is stateless between events and safe for
// concurrent dispatch.
type PrometheusListener struct{}

// NewPrometheusListener creates a new Prometheus-backed event listener.
func NewPrometheusListener() *PrometheusListener {
	return &PrometheusListener{}
}

// OnAuthEvent implements domain.AuthEventListener.
func (p *PrometheusListener) OnAuthEvent(evt domain.AuthEvent) {
	switch evt.Kind {
	case domain.AuthEventAfterLogin:
		loginCounter.WithLabelValues("success").Inc()
		if tok, ok := evt.Token(); ok {
			leaseGauge.Set(tok.LeaseDuration().Seconds())
		}
	case domain.AuthEventAfterLoginTokenRenewed:
		renewalCounter.WithLabelValues("renewed").Inc()
		if tok, ok := evt.Token(); ok {
			leaseGauge.Set(tok.LeaseDuration().Seconds())
		}
	case domain.AuthEventLoginTokenExpired:
		renewalCounter.WithLabelValues("relogin").Inc()
	case domain.AuthEventAfterLoginTokenRevocation:
		revocationCounter.WithLabelValues("success").Inc()
	case domain.AuthEventAuthenticationError:
		switch evt.ErrorKind {
		case domain.AuthErrorLoginFailed:
			loginCounter.WithLabelValues("failure").Inc()
		case domain.AuthErrorTokenRenewalFailed:
			renewalCounter.WithLabelValues("failed").Inc()
		case domain.AuthErrorLoginTokenRevocationFailed:
			revocationCounter.WithLabelValues("failure").Inc()
		}
	}
}

// OnCertificateEvent implements domain.CertificateEventListener.
func (p *PrometheusListener) OnCertificateEvent(evt domain.CertificateEvent) {
	name := evt.Request.Name()
	switch evt.Kind {
	case domain.CertEventObtained, domain.CertEventBundleIssued:
		certificateRotationCounter.WithLabelValues(name, "obtained").Inc()
	case domain.CertEventRotated, domain.CertEventBundleRotated:
		certificateRotationCounter.WithLabelValues(name, "rotated").Inc()
	case domain.CertEventError:
		certificateRotationCounter.WithLabelValues(name, "error").Inc()
	}
}
