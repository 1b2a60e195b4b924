package services

import (
	"time"

	"github.com/sufield/vaultsession/internal/core/ports"
)

// DefaultSessionThreshold is the session manager's default renewal lead
// time.
const DefaultSessionThreshold = 5 * time.Second

// DefaultCertificateThreshold is the certificate container's default
// rotation lead time.
const DefaultCertificateThreshold = 60 * time.Second

// ShouldScheduleRenewal reports whether window is large enough to jitter a
// renewal ahead of expiry rather than treat it as already due. Both the
// session manager (window = lease duration) and the certificate container
// (window = notAfter - now) share this one test, per the unified renewal
// policy.
func ShouldScheduleRenewal(window, threshold time.Duration) bool {
	return window > 2*threshold
}

// RenewalDelay computes the jittered one-shot delay before a renewal or
// rotation task should fire, given the remaining window before
// expiry/lease end and the configured lead-time threshold. It is the
// single formula shared by the session manager's renewal scheduling and
// the certificate container's rotation scheduling: delay =
// max(0, window - threshold + jitter), jitter uniform on [1s, threshold),
// applied only when window > 2*threshold (see ShouldScheduleRenewal).
//
// When window is not large enough to jitter, the certificate container
// still wants a prompt fire rather than no schedule at all, so this
// returns max(0, window) in that case. The session manager never calls this
// function for that case: it schedules no renewal for a too-small lease
// obtained at login, and re-logs in when a renewal returns one.
func RenewalDelay(rnd ports.Random, window, threshold time.Duration) time.Duration {
	if !ShouldScheduleRenewal(window, threshold) {
		if window < 0 {
			return 0
		}
		return window
	}
	jitter := time.Second + time.Duration(rnd.Float64()*float64(threshold-time.Second))
	delay := window - threshold + jitter
	if delay < 0 {
		return 0
	}
	return delay
}
