package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// AuthStrategy drives one authentication flow to produce a session token.
// Concrete strategies wrap a step graph and an executor (see
// pkg/vaultsession for the per-method constructors); the static-token and
// generic cubbyhole-unwrap flows never reach a login endpoint that
// reports lease metadata, so they answer RequiresSelfLookup true.
type AuthStrategy interface {
	Login(ctx context.Context) (domain.SessionToken, error)
	RequiresSelfLookup() bool
}

// LeaseStrategy controls what happens to the cached token when a
// scheduled renewal fails outright (transport or server error).
type LeaseStrategy int

const (
	// LeaseStrategyDropOnError discards the token on renewal failure; the
	// next SessionToken call re-authenticates. Default for the session
	// manager.
	LeaseStrategyDropOnError LeaseStrategy = iota
	// LeaseStrategyRetainOnError keeps the token; SessionToken keeps
	// returning the retained value. Its expiry is not checked and no further
	// renewal is scheduled for it.
	LeaseStrategyRetainOnError
)

type sessionStatus int32

const (
	statusInitial sessionStatus = iota
	statusStarted
	statusDestroyed
)

// SessionManagerConfig tunes a SessionManager's behavior.
type SessionManagerConfig struct {
	Threshold     time.Duration
	LeaseStrategy LeaseStrategy
	Clock         ports.Clock
	Random        ports.Random
	Logger        *slog.Logger
}

// SessionManager provides exactly one valid session token to callers,
// transparently renewing or re-authenticating, per §4.F.
type SessionManager struct {
	strategy  AuthStrategy
	transport ports.Transport
	scheduler ports.Scheduler
	bus       *EventBus
	clock     ports.Clock
	random    ports.Random
	threshold time.Duration
	lease     LeaseStrategy
	logger    *slog.Logger

	status sessionStatus

	loginMu sync.Mutex
	token   atomic.Pointer[domain.SessionToken]

	isLoginTokenMu sync.Mutex
	isLoginToken   bool

	renewalCancel atomic.Pointer[domain.CancelFunc]
}

// NewSessionManager builds a SessionManager. cfg fields left zero take
// the session manager's own defaults (5s threshold, drop-on-error, system
// clock, math/rand-backed random, default logger).
func NewSessionManager(strategy AuthStrategy, transport ports.Transport, scheduler ports.Scheduler, bus *EventBus, cfg SessionManagerConfig) *SessionManager {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultSessionThreshold
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
	return &SessionManager{
		strategy:  strategy,
		transport: transport,
		scheduler: scheduler,
		bus:       bus,
		clock:     clock,
		random:    random,
		threshold: threshold,
		lease:     cfg.LeaseStrategy,
		logger:    logger,
	}
}

// SessionToken returns the current valid session token, performing the
// first-time login if necessary. Concurrent callers serialize on the
// first login only; once cached, reads are lock-free.
func (m *SessionManager) SessionToken(ctx context.Context) (domain.SessionToken, error) {
	if sessionStatus(atomic.LoadInt32((*int32)(&m.status))) == statusDestroyed {
		return domain.SessionToken{}, vaulterrors.NewStateError("session manager has been destroyed")
	}
	if tok := m.token.Load(); tok != nil {
		return *tok, nil
	}

	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if tok := m.token.Load(); tok != nil {
		return *tok, nil
	}
	if sessionStatus(atomic.LoadInt32((*int32)(&m.status))) == statusDestroyed {
		return domain.SessionToken{}, vaulterrors.NewStateError("session manager has been destroyed")
	}

	tok, err := m.login(ctx)
	if err != nil {
		return domain.SessionToken{}, err
	}
	atomic.StoreInt32((*int32)(&m.status), int32(statusStarted))
	return tok, nil
}

// RenewToken attempts an explicit renewal, independent of the background
// scheduler, sharing the same code path it uses. It returns true if the
// lease was extended, false if renewal was skipped (no cached token, or
// the token is not renewable) or the manager instead re-authenticated.
func (m *SessionManager) RenewToken(ctx context.Context) (bool, error) {
	tok := m.token.Load()
	if tok == nil || !tok.IsRenewable() || tok.IsBatchToken() {
		return false, nil
	}
	return m.renewOrRelogin(ctx)
}

// Destroy is idempotent: it transitions to the terminal state, cancels any
// scheduled renewal, revokes the current token if it is a service login
// token, and clears cached state. Revocation errors never propagate.
func (m *SessionManager) Destroy(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32((*int32)(&m.status), int32(statusInitial), int32(statusDestroyed)) &&
		!atomic.CompareAndSwapInt32((*int32)(&m.status), int32(statusStarted), int32(statusDestroyed)) {
		return nil
	}

	m.cancelRenewal()

	tok := m.token.Load()
	m.token.Store(nil)
	if tok == nil {
		return nil
	}

	m.isLoginTokenMu.Lock()
	isLoginToken := m.isLoginToken
	m.isLoginTokenMu.Unlock()

	if !isLoginToken || !tok.IsServiceToken() || tok.IsBatchToken() {
		return nil
	}

	m.bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLoginTokenRevocation))
	if err := m.revokeSelf(ctx, *tok); err != nil {
		m.bus.PublishAuth(domain.NewAuthErrorEvent(domain.AuthErrorLoginTokenRevocationFailed, err))
		return nil
	}
	m.bus.PublishAuth(domain.NewAuthEvent(domain.AuthEventAfterLoginTokenRevocation, *tok))
	return nil
}

// login drives the auth strategy, enriches a bare token via self-lookup
// when required, caches the result, and schedules renewal.
func (m *SessionManager) login(ctx context.Context) (domain.SessionToken, error) {
	m.bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLogin))

	tok, err := m.strategy.Login(ctx)
	if err != nil {
		m.bus.PublishAuth(domain.NewAuthErrorEvent(domain.AuthErrorLoginFailed, err))
		return domain.SessionToken{}, err
	}

	isLoginToken := true
	if m.strategy.RequiresSelfLookup() {
		isLoginToken = false
		enriched, lookupErr := m.selfLookup(ctx, tok)
		if lookupErr != nil {
			m.logger.Warn("self-lookup failed after login; retaining raw token", "error", lookupErr)
		} else {
			tok = enriched
		}
	}

	m.isLoginTokenMu.Lock()
	m.isLoginToken = isLoginToken
	m.isLoginTokenMu.Unlock()

	m.bus.PublishAuth(domain.NewAuthEvent(domain.AuthEventAfterLogin, tok))
	m.token.Store(&tok)

	if tok.IsRenewable() && !tok.IsBatchToken() && tok.LeaseDuration() > 0 {
		m.scheduleRenewal(tok)
	}

	return tok, nil
}

// scheduleRenewal arranges the one-shot renewal task per §4.F point 2,
// cancelling any previously scheduled task first so at most one is ever
// in flight.
func (m *SessionManager) scheduleRenewal(tok domain.SessionToken) {
	window := tok.LeaseDuration()
	if !ShouldScheduleRenewal(window, m.threshold) {
		return
	}
	delay := RenewalDelay(m.random, window, m.threshold)
	cancel := m.scheduler.Schedule(context.Background(), delay, m.onRenewalFired)
	m.installRenewalCancel(cancel)
}

func (m *SessionManager) installRenewalCancel(cancel domain.CancelFunc) {
	old := m.renewalCancel.Swap(&cancel)
	if old != nil && *old != nil {
		(*old)()
	}
}

func (m *SessionManager) cancelRenewal() {
	old := m.renewalCancel.Swap(nil)
	if old != nil && *old != nil {
		(*old)()
	}
}

// onRenewalFired is the scheduler callback. A task that fires after
// destroy is a no-op.
func (m *SessionManager) onRenewalFired(ctx context.Context) {
	if sessionStatus(atomic.LoadInt32((*int32)(&m.status))) == statusDestroyed {
		return
	}
	if _, err := m.renewOrRelogin(ctx); err != nil {
		m.logger.Warn("scheduled renewal failed", "error", err)
	}
}

// renewOrRelogin implements §4.F points 2-3: renew, and if the renewed
// lease is too short, re-authenticate instead of rescheduling.
func (m *SessionManager) renewOrRelogin(ctx context.Context) (bool, error) {
	tok := m.token.Load()
	if tok == nil {
		return false, nil
	}

	m.bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLoginTokenRenewed))
	renewed, err := m.renewSelf(ctx, *tok)
	if err != nil {
		m.bus.PublishAuth(domain.NewAuthErrorEvent(domain.AuthErrorTokenRenewalFailed, err))
		if m.lease == LeaseStrategyDropOnError {
			m.token.Store(nil)
		}
		return false, err
	}

	if !ShouldScheduleRenewal(renewed.LeaseDuration(), m.threshold) {
		m.bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventLoginTokenExpired))
		if _, loginErr := m.login(ctx); loginErr != nil {
			m.bus.PublishAuth(domain.NewAuthErrorEvent(domain.AuthErrorLoginFailed, loginErr))
			if m.lease == LeaseStrategyDropOnError {
				m.token.Store(nil)
			}
			return false, loginErr
		}
		return false, nil
	}

	m.token.Store(&renewed)
	m.bus.PublishAuth(domain.NewAuthEvent(domain.AuthEventAfterLoginTokenRenewed, renewed))
	m.scheduleRenewal(renewed)
	return true, nil
}

func (m *SessionManager) selfLookup(ctx context.Context, tok domain.SessionToken) (domain.SessionToken, error) {
	resp, err := m.transport.Do(ctx, ports.Request{
		Method:  http.MethodGet,
		Path:    "auth/token/lookup-self",
		Headers: map[string]string{"X-Vault-Token": tok.Token()},
	})
	if err != nil {
		return tok, vaulterrors.NewSelfLookupError(err)
	}
	if !resp.IsSuccess() {
		return tok, vaulterrors.NewSelfLookupError(fmt.Errorf("lookup-self returned status %d", resp.Status))
	}
	var env domain.LookupSelfEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil || env.Data == nil {
		return tok, vaulterrors.NewSelfLookupError(fmt.Errorf("malformed lookup-self response"))
	}
	tokenType := domain.TokenType(env.Data.Type)
	if tokenType == "" {
		tokenType = domain.TokenTypeService
	}
	built := domain.NewSessionTokenBuilder(tok.Token()).
		Renewable(env.Data.Renewable).
		LeaseDuration(time.Duration(env.Data.TTL) * time.Second).
		Type(tokenType).
		Accessor(env.Data.Accessor).
		Build()
	return built, nil
}

func (m *SessionManager) renewSelf(ctx context.Context, tok domain.SessionToken) (domain.SessionToken, error) {
	if tok.IsBatchToken() {
		return domain.SessionToken{}, vaulterrors.NewTokenRenewalError(0, "batch tokens are not renewable")
	}
	resp, err := m.transport.Do(ctx, ports.Request{
		Method:  http.MethodPost,
		Path:    "auth/token/renew-self",
		Headers: map[string]string{"X-Vault-Token": tok.Token()},
	})
	if err != nil {
		return domain.SessionToken{}, vaulterrors.NewTokenRenewalError(0, err.Error())
	}
	if !resp.IsSuccess() {
		return domain.SessionToken{}, vaulterrors.NewTokenRenewalError(resp.Status, "renew-self returned non-2xx")
	}
	var env domain.LoginEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil || env.Auth == nil {
		return domain.SessionToken{}, vaulterrors.NewTokenRenewalError(resp.Status, "renew-self response missing auth block")
	}
	return tokenFromAuthBlock(env.Auth), nil
}

func (m *SessionManager) revokeSelf(ctx context.Context, tok domain.SessionToken) error {
	resp, err := m.transport.Do(ctx, ports.Request{
		Method:  http.MethodPost,
		Path:    "auth/token/revoke-self",
		Headers: map[string]string{"X-Vault-Token": tok.Token()},
	})
	if err != nil {
		return vaulterrors.NewRevocationError(err)
	}
	if !resp.IsSuccess() {
		return vaulterrors.NewRevocationError(fmt.Errorf("revoke-self returned status %d", resp.Status))
	}
	return nil
}
