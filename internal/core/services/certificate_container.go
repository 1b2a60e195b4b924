package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// certificateRegistration is one managed RequestedCertificate and its
// current holder/scheduled-rotation state.
type certificateRegistration struct {
	mu     sync.Mutex
	req    domain.RequestedCertificate
	holder *domain.CertificateHolder
	cancel domain.CancelFunc
}

// CertificateContainerConfig tunes a CertificateContainer's behavior.
type CertificateContainerConfig struct {
	ExpiryThreshold time.Duration
	Clock           ports.Clock
	Random          ports.Random
	Logger          *slog.Logger
}

// CertificateContainer obtains a set of registered certificates and keeps
// them rotated ahead of expiry, per §4.H.
type CertificateContainer struct {
	ca        ports.CertificateAuthority
	scheduler ports.Scheduler
	bus       *EventBus
	clock     ports.Clock
	random    ports.Random
	logger    *slog.Logger

	mu            sync.Mutex
	status        sessionStatus
	threshold     time.Duration
	registrations map[string]*certificateRegistration
}

// NewCertificateContainer builds a CertificateContainer. cfg fields left
// zero take the container's own defaults (60s threshold, system clock,
// default logger).
func NewCertificateContainer(ca ports.CertificateAuthority, scheduler ports.Scheduler, bus *EventBus, cfg CertificateContainerConfig) *CertificateContainer {
	threshold := cfg.ExpiryThreshold
	if threshold <= 0 {
		threshold = DefaultCertificateThreshold
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	random := cfg.Random
	if random == nil {
		random = ports.SystemRandom{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateContainer{
		ca:            ca,
		scheduler:     scheduler,
		bus:           bus,
		clock:         clock,
		random:        random,
		logger:        logger,
		threshold:     threshold,
		registrations: make(map[string]*certificateRegistration),
	}
}

// SetExpiryThreshold changes the lead time used for future rotation
// scheduling. d must be non-negative.
func (c *CertificateContainer) SetExpiryThreshold(d time.Duration) error {
	if d < 0 {
		return vaulterrors.NewConfigurationError("expiry threshold must be non-negative", nil)
	}
	c.mu.Lock()
	c.threshold = d
	c.mu.Unlock()
	return nil
}

func (c *CertificateContainer) getThreshold() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// Register adds req. If the container is already running, it is obtained
// and scheduled immediately. Re-registering the same name is idempotent:
// the stored request parameters are refreshed but the existing holder and
// schedule are left alone.
func (c *CertificateContainer) Register(req domain.RequestedCertificate) {
	c.mu.Lock()
	running := c.status == statusStarted
	reg, exists := c.registrations[req.Name()]
	if exists {
		reg.mu.Lock()
		reg.req = req
		reg.mu.Unlock()
		c.mu.Unlock()
		return
	}
	reg = &certificateRegistration{req: req}
	c.registrations[req.Name()] = reg
	c.mu.Unlock()

	if running {
		c.obtainAndSchedule(context.Background(), reg)
	}
}

// RegisterWithListener registers req and subscribes listener to events
// whose source equals req.
func (c *CertificateContainer) RegisterWithListener(req domain.RequestedCertificate, listener domain.CertificateEventListener) {
	c.Register(req)
	c.bus.AddCertListener(req, listener)
}

// Unregister removes req, cancelling its scheduled rotation and dropping
// its listeners. It reports whether req was present.
func (c *CertificateContainer) Unregister(req domain.RequestedCertificate) bool {
	c.mu.Lock()
	reg, ok := c.registrations[req.Name()]
	if ok {
		delete(c.registrations, req.Name())
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	reg.mu.Lock()
	cancel := reg.cancel
	reg.cancel = nil
	reg.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.bus.RemoveCertListenersFor(req)
	return true
}

// Rotate forces immediate (re)issuance of a managed certificate,
// cancelling any pending scheduled rotation first.
func (c *CertificateContainer) Rotate(ctx context.Context, req domain.RequestedCertificate) error {
	c.mu.Lock()
	reg, ok := c.registrations[req.Name()]
	c.mu.Unlock()
	if !ok {
		return vaulterrors.NewStateError(fmt.Sprintf("certificate %q is not registered", req.Name()))
	}

	reg.mu.Lock()
	cancel := reg.cancel
	reg.cancel = nil
	hasHolder := reg.holder != nil
	reg.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if hasHolder {
		return c.rotateOnce(ctx, reg)
	}
	return c.obtainOnce(ctx, reg)
}

// Start transitions to the started state and obtains every registration
// that does not yet have a holder.
func (c *CertificateContainer) Start() {
	c.mu.Lock()
	if c.status == statusDestroyed || c.status == statusStarted {
		c.mu.Unlock()
		return
	}
	c.status = statusStarted
	regs := make([]*certificateRegistration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, reg)
	}
	c.mu.Unlock()

	for _, reg := range regs {
		reg.mu.Lock()
		needsObtain := reg.holder == nil
		reg.mu.Unlock()
		if needsObtain {
			c.obtainAndSchedule(context.Background(), reg)
		}
	}
}

// Stop cancels every scheduled rotation and returns to the initial state,
// dropping each registration's holder so a subsequent Start re-obtains and
// re-emits obtained/issued events rather than silently keeping the stale
// certificate in memory.
func (c *CertificateContainer) Stop() {
	c.mu.Lock()
	if c.status != statusStarted {
		c.mu.Unlock()
		return
	}
	c.status = statusInitial
	regs := make([]*certificateRegistration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, reg)
	}
	c.mu.Unlock()

	for _, reg := range regs {
		reg.mu.Lock()
		cancel := reg.cancel
		reg.cancel = nil
		reg.holder = nil
		reg.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
}

// Destroy is the terminal transition: it stops all scheduling and drops
// every registration and its listeners.
func (c *CertificateContainer) Destroy() {
	c.mu.Lock()
	if c.status == statusDestroyed {
		c.mu.Unlock()
		return
	}
	c.status = statusDestroyed
	regs := c.registrations
	c.registrations = make(map[string]*certificateRegistration)
	c.mu.Unlock()

	for _, reg := range regs {
		reg.mu.Lock()
		cancel := reg.cancel
		reg.cancel = nil
		req := reg.req
		reg.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.bus.RemoveCertListenersFor(req)
	}
}

// CertificateStatus summarizes one registration for display purposes (e.g.
// the CLI's "cert list" command).
type CertificateStatus struct {
	Name     string
	Kind     domain.RequestedCertificateKind
	Role     string
	Issuer   string
	Obtained bool
	Expiry   time.Time
	Serial   string
}

// List reports the current status of every registered certificate.
func (c *CertificateContainer) List() []CertificateStatus {
	c.mu.Lock()
	regs := make([]*certificateRegistration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, reg)
	}
	c.mu.Unlock()

	statuses := make([]CertificateStatus, 0, len(regs))
	for _, reg := range regs {
		reg.mu.Lock()
		holder := reg.holder
		req := reg.req
		reg.mu.Unlock()

		st := CertificateStatus{Name: req.Name(), Kind: req.Kind(), Role: req.Role(), Issuer: req.Issuer()}
		if holder != nil {
			st.Obtained = true
			st.Expiry = holder.Expiry
			st.Serial = holder.SerialNumber()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func (c *CertificateContainer) obtainAndSchedule(ctx context.Context, reg *certificateRegistration) {
	if err := c.obtainOnce(ctx, reg); err != nil {
		c.logger.Warn("certificate obtain failed", "name", reg.req.Name(), "error", err)
	}
}

func (c *CertificateContainer) obtainOnce(ctx context.Context, reg *certificateRegistration) error {
	issued, err := c.fetch(ctx, reg.req)
	if err != nil {
		c.bus.PublishCert(domain.CertificateEvent{
			Kind:    domain.CertEventError,
			Request: reg.req,
			Err:     vaulterrors.NewCertificateError(reg.req.Name(), err),
		})
		return err
	}

	holder := domain.NewCertificateHolder(issued)
	reg.mu.Lock()
	reg.holder = holder
	reg.mu.Unlock()

	kind := domain.CertEventObtained
	if reg.req.Kind() == domain.RequestedCertBundle {
		kind = domain.CertEventBundleIssued
	}
	c.bus.PublishCert(domain.CertificateEvent{Kind: kind, Request: reg.req, Holder: holder})

	c.scheduleRotation(reg)
	return nil
}

func (c *CertificateContainer) rotateOnce(ctx context.Context, reg *certificateRegistration) error {
	reg.mu.Lock()
	outgoing := reg.holder
	reg.mu.Unlock()

	issued, err := c.fetch(ctx, reg.req)
	if err != nil {
		c.bus.PublishCert(domain.CertificateEvent{
			Kind:    domain.CertEventError,
			Request: reg.req,
			Holder:  outgoing,
			Err:     vaulterrors.NewCertificateError(reg.req.Name(), err),
		})
		// Holder retained; no reschedule. An operator forces retry via Rotate.
		return err
	}

	holder := domain.NewCertificateHolder(issued)
	reg.mu.Lock()
	reg.holder = holder
	reg.mu.Unlock()

	if outgoing != nil && c.clock.Now().After(outgoing.Expiry) {
		c.bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventExpired, Request: reg.req, Holder: outgoing})
	}

	kind := domain.CertEventRotated
	if reg.req.Kind() == domain.RequestedCertBundle {
		kind = domain.CertEventBundleRotated
	}
	c.bus.PublishCert(domain.CertificateEvent{Kind: kind, Request: reg.req, Holder: holder})

	c.scheduleRotation(reg)
	return nil
}

func (c *CertificateContainer) fetch(ctx context.Context, req domain.RequestedCertificate) (domain.IssuedCertificate, error) {
	switch req.Kind() {
	case domain.RequestedCertBundle:
		return c.ca.IssueCertificate(ctx, req.Name(), req.Role(), req.Request())
	case domain.RequestedCertTrustAnchor:
		return c.ca.GetIssuerCertificate(ctx, req.Name(), req.Issuer())
	default:
		return domain.IssuedCertificate{}, fmt.Errorf("unknown requested certificate kind %q", req.Kind())
	}
}

// scheduleRotation arranges the one-shot rotation task for reg's current
// holder, cancelling any previously scheduled task first.
func (c *CertificateContainer) scheduleRotation(reg *certificateRegistration) {
	reg.mu.Lock()
	holder := reg.holder
	reg.mu.Unlock()
	if holder == nil {
		return
	}

	threshold := c.getThreshold()
	window := holder.Expiry.Sub(c.clock.Now())
	delay := RenewalDelay(c.random, window, threshold)

	cancel := c.scheduler.Schedule(context.Background(), delay, func(taskCtx context.Context) {
		c.onRotationFired(taskCtx, reg)
	})

	reg.mu.Lock()
	old := reg.cancel
	reg.cancel = cancel
	reg.mu.Unlock()
	if old != nil {
		old()
	}
}

func (c *CertificateContainer) onRotationFired(ctx context.Context, reg *certificateRegistration) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status == statusDestroyed {
		return
	}
	if err := c.rotateOnce(ctx, reg); err != nil {
		c.logger.Warn("certificate rotation failed", "name", reg.req.Name(), "error", err)
	}
}
