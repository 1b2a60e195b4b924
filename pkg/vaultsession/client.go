// Package vaultsession is the public entry point wiring the authentication
// step machine, session manager, and certificate container into one
// facade for callers, hiding the transport and auth-strategy adapters
// behind a single constructor.
package vaultsession

import (
	"context"
	"log/slog"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
)

// ClientConfig tunes the session manager and event bus a Client wires up.
// Zero values take the underlying services' own defaults.
type ClientConfig struct {
	RenewalThreshold time.Duration
	LeaseStrategy    services.LeaseStrategy
	Clock            ports.Clock
	Random           ports.Random
	Logger           *slog.Logger
}

// Client is the facade a caller builds once per process: it owns the
// session manager and, optionally, a certificate container, sharing one
// event bus between them.
type Client struct {
	manager *services.SessionManager
	certs   *services.CertificateContainer
	bus     *services.EventBus
}

// New wires a Client from an already-constructed AuthStrategy, transport,
// and scheduler. Use the internal/adapters/secondary/transport and
// .../scheduler packages for production collaborators, or hand-rolled test
// doubles implementing ports.Transport/ports.Scheduler in tests.
func New(strategy services.AuthStrategy, transport ports.Transport, scheduler ports.Scheduler, cfg ClientConfig) (*Client, error) {
	if strategy == nil {
		return nil, vaulterrors.NewConfigurationError("an auth strategy is required", nil)
	}
	if transport == nil {
		return nil, vaulterrors.NewConfigurationError("a transport is required", nil)
	}
	if scheduler == nil {
		return nil, vaulterrors.NewConfigurationError("a scheduler is required", nil)
	}

	bus := services.NewEventBus(cfg.Logger)
	manager := services.NewSessionManager(strategy, transport, scheduler, bus, services.SessionManagerConfig{
		Threshold:     cfg.RenewalThreshold,
		LeaseStrategy: cfg.LeaseStrategy,
		Clock:         cfg.Clock,
		Random:        cfg.Random,
		Logger:        cfg.Logger,
	})

	return &Client{manager: manager, bus: bus}, nil
}

// WithCertificates attaches a CertificateContainer driven by ca, sharing
// this Client's event bus and scheduler-independent lifecycle. Returns the
// client for chaining; safe to call at most once.
func (c *Client) WithCertificates(ca ports.CertificateAuthority, scheduler ports.Scheduler, cfg services.CertificateContainerConfig) *Client {
	c.certs = services.NewCertificateContainer(ca, scheduler, c.bus, cfg)
	return c
}

// SessionToken returns the current valid session token, authenticating on
// first use.
func (c *Client) SessionToken(ctx context.Context) (domain.SessionToken, error) {
	return c.manager.SessionToken(ctx)
}

// RenewToken forces an out-of-band renewal attempt.
func (c *Client) RenewToken(ctx context.Context) (bool, error) {
	return c.manager.RenewToken(ctx)
}

// RegisterCertificate registers req for initial issuance and ongoing
// rotation. Panics are never raised for a nil certificate container; the
// call is a no-op until WithCertificates has been called.
func (c *Client) RegisterCertificate(req domain.RequestedCertificate) {
	if c.certs == nil {
		return
	}
	c.certs.Register(req)
}

// StartCertificateRotation begins the certificate container's background
// obtain/rotate loop, if one was attached.
func (c *Client) StartCertificateRotation() {
	if c.certs == nil {
		return
	}
	c.certs.Start()
}

// EventBus exposes the shared event bus so callers can attach additional
// listeners (e.g. the Prometheus listener in internal/adapters/metrics).
func (c *Client) EventBus() *services.EventBus {
	return c.bus
}

// Certificates exposes the attached certificate container, or nil if
// WithCertificates was never called. Exposed directly (rather than
// duplicating its full API on Client) so callers can register
// per-certificate event listeners via RegisterWithListener.
func (c *Client) Certificates() *services.CertificateContainer {
	return c.certs
}

// Close tears the client down: stops certificate rotation and destroys the
// session manager, revoking its token if appropriate.
func (c *Client) Close(ctx context.Context) error {
	if c.certs != nil {
		c.certs.Destroy()
	}
	return c.manager.Destroy(ctx)
}
