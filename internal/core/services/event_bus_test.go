package services_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/services"
)

func TestEventBus_PublishAuth_DispatchesToAllListeners(t *testing.T) {
	bus := services.NewEventBus(nil)
	var got1, got2 domain.AuthEvent
	bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { got1 = e }))
	bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { got2 = e }))

	evt := domain.NewAuthEvent(domain.AuthEventAfterLogin, domain.Of("s.abc"))
	bus.PublishAuth(evt)

	assert.Equal(t, domain.AuthEventAfterLogin, got1.Kind)
	assert.Equal(t, domain.AuthEventAfterLogin, got2.Kind)
}

func TestEventBus_RemoveAuthListener_StopsDelivery(t *testing.T) {
	bus := services.NewEventBus(nil)
	calls := 0
	unsub := bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { calls++ }))
	bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLogin))
	unsub()
	bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLogin))

	assert.Equal(t, 1, calls)
}

func TestEventBus_PanicInListenerIsRecoveredAndReported(t *testing.T) {
	bus := services.NewEventBus(nil)
	var reportedErr error
	bus.SetErrorListener(domain.ErrorListenerFunc(func(err error) { reportedErr = err }))

	secondRan := false
	bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { panic("boom") }))
	bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { secondRan = true }))

	assert.NotPanics(t, func() {
		bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLogin))
	})
	require.Error(t, reportedErr)
	assert.Contains(t, reportedErr.Error(), "boom")
	assert.True(t, secondRan, "a panicking listener must not block dispatch to the rest")
}

func TestEventBus_PublishCert_FiltersByRequestIdentity(t *testing.T) {
	bus := services.NewEventBus(nil)
	web := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	other := domain.NewRequestedBundle("other", "role-b", domain.CertificateRequest{})

	webCalls, otherCalls := 0, 0
	bus.AddCertListener(web, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) { webCalls++ }))
	bus.AddCertListener(other, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) { otherCalls++ }))

	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventObtained, Request: web})

	assert.Equal(t, 1, webCalls)
	assert.Equal(t, 0, otherCalls)
}

func TestEventBus_GlobalCertListener_SeesEverySource(t *testing.T) {
	bus := services.NewEventBus(nil)
	web := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})
	other := domain.NewRequestedBundle("other", "role-b", domain.CertificateRequest{})

	var seen []string
	unsub := bus.AddGlobalCertListener(domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) {
		seen = append(seen, e.Request.Name())
	}))

	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventObtained, Request: web})
	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventObtained, Request: other})
	assert.Equal(t, []string{"web", "other"}, seen)

	unsub()
	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventRotated, Request: web})
	assert.Len(t, seen, 2)
}

func TestEventBus_RemoveCertListenersFor_DropsAllListenersForThatRequest(t *testing.T) {
	bus := services.NewEventBus(nil)
	web := domain.NewRequestedBundle("web", "role-a", domain.CertificateRequest{})

	calls := 0
	bus.AddCertListener(web, domain.CertificateEventListenerFunc(func(e domain.CertificateEvent) { calls++ }))
	bus.RemoveCertListenersFor(web)
	bus.PublishCert(domain.CertificateEvent{Kind: domain.CertEventObtained, Request: web})

	assert.Equal(t, 0, calls)
}

func TestEventBus_DefaultErrorListener_LogsWithoutPanicking(t *testing.T) {
	bus := services.NewEventBus(nil)
	bus.AddAuthListener(domain.AuthEventListenerFunc(func(e domain.AuthEvent) { panic(fmt.Errorf("boom")) }))
	assert.NotPanics(t, func() {
		bus.PublishAuth(domain.NewPlainAuthEvent(domain.AuthEventBeforeLogin))
	})
}
