package services_test

import (
	"context"
	"crypto/x509"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/services"
)

type fakeCA struct {
	mu       sync.Mutex
	issued   int
	notAfter time.Time
	err      error
}

func (c *fakeCA) IssueCertificate(ctx context.Context, name, role string, req domain.CertificateRequest) (domain.IssuedCertificate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	if c.err != nil {
		return domain.IssuedCertificate{}, c.err
	}
	return domain.IssuedCertificate{
		Cert: &x509.Certificate{SerialNumber: big.NewInt(int64(c.issued)), NotAfter: c.notAfter},
	}, nil
}

func (c *fakeCA) GetIssuerCertificate(ctx context.Context, name, issuer string) (domain.IssuedCertificate, error) {
	return c.IssueCertificate(ctx, name, issuer, domain.CertificateRequest{})
}

func TestCertificateContainer_RegisterThenStart_ObtainsCertificate(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	var got *domain.CertificateHolder
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{CommonName: "web.internal"})
	bus.AddCertListener(req, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) {
		if e.Kind == domain.CertEventBundleIssued {
			got = e.Holder
		}
	}))

	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Register(req)
	c.Start()

	require.NotNil(t, got)
	assert.Equal(t, 1, ca.issued)
}

func TestCertificateContainer_Register_WhileRunning_ObtainsImmediately(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Start()

	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	c.Register(req)

	assert.Equal(t, 1, ca.issued)
}

func TestCertificateContainer_Rotate_ForcesReissuance(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Register(req)
	c.Start()
	require.Equal(t, 1, ca.issued)

	err := c.Rotate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, ca.issued)
}

func TestCertificateContainer_Rotate_UnregisteredNameErrors(t *testing.T) {
	ca := &fakeCA{}
	bus := services.NewEventBus(nil)
	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})

	err := c.Rotate(context.Background(), domain.NewRequestedBundle("ghost", "role-a", domain.CertificateRequest{}))
	assert.Error(t, err)
}

func TestCertificateContainer_ScheduledRotationFiresThroughFakeScheduler(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(time.Hour)}
	bus := services.NewEventBus(nil)
	sched := &fireOnceScheduler{}
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})

	c := services.NewCertificateContainer(ca, sched, bus, services.CertificateContainerConfig{
		ExpiryThreshold: time.Second,
		Random:          fixedRandom{value: 0.5},
	})
	c.Register(req)
	c.Start()

	assert.Equal(t, 2, ca.issued, "the scheduler fires the rotation task inline once, issuing a second certificate")
}

// fireOnceScheduler runs the first scheduled task inline and then goes
// quiet, so a test can observe one rotation firing without the container's
// self-rescheduling recursing forever through a scheduler that always
// fires immediately.
type fireOnceScheduler struct {
	mu      sync.Mutex
	fired   bool
}

func (s *fireOnceScheduler) Schedule(ctx context.Context, delay time.Duration, task func(context.Context)) domain.CancelFunc {
	s.mu.Lock()
	alreadyFired := s.fired
	s.fired = true
	s.mu.Unlock()
	if !alreadyFired {
		task(ctx)
	}
	return func() {}
}

func TestCertificateContainer_Unregister_CancelsAndDropsListeners(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	calls := 0
	bus.AddCertListener(req, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) { calls++ }))

	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Register(req)
	c.Start()
	before := calls

	ok := c.Unregister(req)
	require.True(t, ok)

	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventObtained, Request: req})
	assert.Equal(t, before, calls, "listeners must not fire after Unregister")
}

func TestCertificateContainer_Destroy_IsIdempotentAndStopsScheduling(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Register(req)
	c.Start()

	c.Destroy()
	c.Destroy()

	err := c.Rotate(context.Background(), req)
	assert.Error(t, err, "registrations are dropped on destroy")
}

func TestCertificateContainer_SetExpiryThreshold_RejectsNegative(t *testing.T) {
	c := services.NewCertificateContainer(&fakeCA{}, noopScheduler{}, services.NewEventBus(nil), services.CertificateContainerConfig{})
	err := c.SetExpiryThreshold(-time.Second)
	assert.Error(t, err)
}

func TestCertificateContainer_StopThenStart_ReissuesAndReEmitsObtained(t *testing.T) {
	ca := &fakeCA{notAfter: time.Now().Add(24 * time.Hour)}
	bus := services.NewEventBus(nil)
	req := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	var issuedEvents int
	bus.AddCertListener(req, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) {
		if e.Kind == domain.CertEventBundleIssued {
			issuedEvents++
		}
	}))

	c := services.NewCertificateContainer(ca, noopScheduler{}, bus, services.CertificateContainerConfig{})
	c.Register(req)
	c.Start()
	require.Equal(t, 1, ca.issued)
	require.Equal(t, 1, issuedEvents)

	c.Stop()
	assert.Equal(t, 1, ca.issued, "Stop must not itself reissue")

	c.Start()
	assert.Equal(t, 2, ca.issued, "Start after Stop must re-obtain the certificate")
	assert.Equal(t, 2, issuedEvents, "Start after Stop must re-emit the bundle-issued event")
}
