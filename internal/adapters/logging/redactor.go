// Package logging provides slog handlers that redact credential material
// before it reaches any output.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RedactedValue replaces any attribute value judged sensitive.
const RedactedValue = "[REDACTED]"

// sensitiveKeys are attribute names whose values are always redacted,
// matched case-insensitively and as substrings of compound keys
// ("vault_token", "approle_secret_id"). The set covers every credential
// this library handles: session tokens, approle identifiers, wrapping
// tokens, signed assertions, and private key material.
var sensitiveKeys = []string{
	"token",
	"secret",
	"password",
	"client_token",
	"secret_id",
	"role_id",
	"accessor",
	"wrapping_token",
	"jwt",
	"pkcs7",
	"signature",
	"nonce",
	"key",
	"cert",
	"credentials",
	"auth",
	"bearer",
	"authorization",
}

// RedactingHandler wraps an slog.Handler and rewrites records so that
// sensitive attributes, PEM blocks, and JWT-shaped strings never pass
// through to the wrapped handler.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next with attribute redaction.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

// NewSecureSlogLogger builds a *slog.Logger whose records pass through a
// RedactingHandler before reaching handler.
func NewSecureSlogLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewRedactingHandler(handler))
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler, rebuilding the record with every
// attribute passed through redaction.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.Record{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		PC:      record.PC,
	}
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	if err := h.next.Handle(ctx, clean); err != nil {
		return fmt.Errorf("redacting handler: %w", err)
	}
	return nil
}

// WithAttrs implements slog.Handler. Attributes bound up front are
// redacted once, here, rather than on every record.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		clean[i] = redactAttr(attr)
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}
	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, member := range group {
			clean[i] = redactAttr(member)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(clean...)}
	case slog.KindString:
		return slog.String(attr.Key, redactString(attr.Value.String()))
	default:
		return attr
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// redactString catches credential material that arrives under an innocent
// key: PEM-armored blocks and JWT-shaped values.
func redactString(value string) string {
	if strings.Contains(value, "-----BEGIN ") {
		return RedactedValue
	}
	if strings.Count(value, ".") == 2 && len(value) > 50 && !strings.ContainsAny(value, " \n") {
		return RedactedValue
	}
	return value
}
