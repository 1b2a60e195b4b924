// Package services implements the authentication step machine, session
// manager, certificate container, and the event bus and renewal-delay
// helpers they share.
package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sufield/vaultsession/internal/core/domain"
)

type certListenerReg struct {
	req      domain.RequestedCertificate
	listener domain.CertificateEventListener
}

// EventBus is a synchronous multicast publisher. Dispatch happens on the
// publishing goroutine; a listener that panics is recovered and reported
// to the error listener instead of disrupting other listeners or the
// publisher. Listener sets are copy-on-write so dispatch never observes a
// concurrent Add/Remove.
type EventBus struct {
	mu                  sync.Mutex
	authListeners       []domain.AuthEventListener
	certListeners       []certListenerReg
	globalCertListeners []domain.CertificateEventListener
	errorListener       domain.ErrorListener
}

// NewEventBus builds an EventBus with the default warn-level error
// listener, used until SetErrorListener overrides it.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		errorListener: domain.ErrorListenerFunc(func(err error) {
			logger.Warn("event bus listener error", "error", err)
		}),
	}
}

// SetErrorListener replaces the default warn-log error listener.
func (b *EventBus) SetErrorListener(l domain.ErrorListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorListener = l
}

// AddAuthListener subscribes l to every AuthEvent published after this
// call. The returned func unsubscribes it.
func (b *EventBus) AddAuthListener(l domain.AuthEventListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]domain.AuthEventListener, len(b.authListeners)+1)
	copy(next, b.authListeners)
	next[len(b.authListeners)] = l
	b.authListeners = next
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.authListeners = removeListener(b.authListeners, l)
	}
}

// PublishAuth dispatches evt to every registered auth listener.
func (b *EventBus) PublishAuth(evt domain.AuthEvent) {
	b.mu.Lock()
	listeners := b.authListeners
	errListener := b.errorListener
	b.mu.Unlock()

	for _, l := range listeners {
		b.safeDispatch(errListener, func() { l.OnAuthEvent(evt) })
	}
}

// AddCertListener subscribes l to CertificateEvents whose source equals
// req. The returned func unsubscribes it.
func (b *EventBus) AddCertListener(req domain.RequestedCertificate, l domain.CertificateEventListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg := certListenerReg{req: req, listener: l}
	b.certListeners = append(append([]certListenerReg{}, b.certListeners...), reg)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		next := make([]certListenerReg, 0, len(b.certListeners))
		for _, r := range b.certListeners {
			if r.req.Equal(req) && sameListener(r.listener, l) {
				continue
			}
			next = append(next, r)
		}
		b.certListeners = next
	}
}

// AddGlobalCertListener subscribes l to every CertificateEvent regardless
// of source, for cross-cutting observers such as metrics reporters. The
// returned func unsubscribes it.
func (b *EventBus) AddGlobalCertListener(l domain.CertificateEventListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]domain.CertificateEventListener, len(b.globalCertListeners)+1)
	copy(next, b.globalCertListeners)
	next[len(b.globalCertListeners)] = l
	b.globalCertListeners = next
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		filtered := make([]domain.CertificateEventListener, 0, len(b.globalCertListeners))
		for _, reg := range b.globalCertListeners {
			if sameListener(reg, l) {
				continue
			}
			filtered = append(filtered, reg)
		}
		b.globalCertListeners = filtered
	}
}

// RemoveCertListenersFor drops every listener registered against req, used
// by the container's unregister.
func (b *EventBus) RemoveCertListenersFor(req domain.RequestedCertificate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]certListenerReg, 0, len(b.certListeners))
	for _, r := range b.certListeners {
		if r.req.Equal(req) {
			continue
		}
		next = append(next, r)
	}
	b.certListeners = next
}

// PublishCert dispatches evt to every listener registered against
// evt.Request.
func (b *EventBus) PublishCert(evt domain.CertificateEvent) {
	b.mu.Lock()
	listeners := b.certListeners
	global := b.globalCertListeners
	errListener := b.errorListener
	b.mu.Unlock()

	for _, l := range global {
		l := l
		b.safeDispatch(errListener, func() { l.OnCertificateEvent(evt) })
	}
	for _, r := range listeners {
		if !r.req.Equal(evt.Request) {
			continue
		}
		l := r.listener
		b.safeDispatch(errListener, func() { l.OnCertificateEvent(evt) })
	}
}

func (b *EventBus) safeDispatch(errListener domain.ErrorListener, dispatch func()) {
	defer func() {
		if r := recover(); r != nil {
			if errListener != nil {
				errListener.OnError(fmt.Errorf("event listener panicked: %v", r))
			}
		}
	}()
	dispatch()
}

func removeListener(listeners []domain.AuthEventListener, target domain.AuthEventListener) []domain.AuthEventListener {
	next := make([]domain.AuthEventListener, 0, len(listeners))
	for _, l := range listeners {
		if sameListener(l, target) {
			continue
		}
		next = append(next, l)
	}
	return next
}

func sameListener[T any](a, b T) bool {
	return fmt.Sprintf("%p", any(a)) == fmt.Sprintf("%p", any(b))
}
