package domain

import "time"

// TokenType classifies a session token as the server would: "service"
// tokens are renewable and revocable; "batch" tokens are neither and live
// only until their TTL elapses; any other value is treated as unknown.
type TokenType string

const (
	TokenTypeService TokenType = "service"
	TokenTypeBatch   TokenType = "batch"
	TokenTypeUnknown TokenType = ""
)

// SessionToken is the credential presented in the auth header on every
// subsequent authenticated request. The zero value is not a valid token;
// construct one with Of, OfLeased, Renewable, or NewSessionTokenBuilder.
type SessionToken struct {
	token         string
	renewable     bool
	leaseDuration time.Duration
	tokenType     TokenType
	accessor      string
}

// Of builds a non-renewable, zero-duration, service-type token.
func Of(token string) SessionToken {
	return SessionToken{token: token, tokenType: TokenTypeService}
}

// OfLeased builds a non-renewable, leased, service-type token.
func OfLeased(token string, leaseDuration time.Duration) SessionToken {
	return SessionToken{token: token, leaseDuration: leaseDuration, tokenType: TokenTypeService}
}

// Renewable builds a renewable, leased, service-type token.
func Renewable(token string, leaseDuration time.Duration) SessionToken {
	return SessionToken{token: token, renewable: true, leaseDuration: leaseDuration, tokenType: TokenTypeService}
}

// SessionTokenBuilder constructs a SessionToken with optional accessor and
// type, defaulting to a non-renewable service token.
type SessionTokenBuilder struct {
	t SessionToken
}

// NewSessionTokenBuilder starts a builder for the given opaque token string.
func NewSessionTokenBuilder(token string) *SessionTokenBuilder {
	return &SessionTokenBuilder{t: SessionToken{token: token, tokenType: TokenTypeService}}
}

func (b *SessionTokenBuilder) Renewable(renewable bool) *SessionTokenBuilder {
	b.t.renewable = renewable
	return b
}

func (b *SessionTokenBuilder) LeaseDuration(d time.Duration) *SessionTokenBuilder {
	b.t.leaseDuration = d
	return b
}

func (b *SessionTokenBuilder) Type(t TokenType) *SessionTokenBuilder {
	b.t.tokenType = t
	return b
}

func (b *SessionTokenBuilder) Accessor(accessor string) *SessionTokenBuilder {
	b.t.accessor = accessor
	return b
}

// Build returns the constructed SessionToken.
func (b *SessionTokenBuilder) Build() SessionToken {
	return b.t
}

// Token returns the opaque secret string. Callers should avoid logging it;
// the redacting slog handler only catches attributes keyed appropriately,
// not raw Printf calls.
func (t SessionToken) Token() string { return t.token }

// Renewable reports whether the server allows this token to be renewed.
func (t SessionToken) IsRenewable() bool { return t.renewable }

// LeaseDuration returns the token's lease duration; zero means infinite or
// not leased.
func (t SessionToken) LeaseDuration() time.Duration { return t.leaseDuration }

// Type returns the server-reported token type, or TokenTypeUnknown.
func (t SessionToken) Type() TokenType { return t.tokenType }

// Accessor returns the opaque server-issued handle, or "" if none.
func (t SessionToken) Accessor() string { return t.accessor }

// IsServiceToken returns true when the type matches "service", which is
// the default when the type is unspecified.
func (t SessionToken) IsServiceToken() bool {
	return t.tokenType == TokenTypeService || t.tokenType == TokenTypeUnknown
}

// IsBatchToken returns true when the type is "batch".
func (t SessionToken) IsBatchToken() bool {
	return t.tokenType == TokenTypeBatch
}

// IsZero reports whether this is the unconstructed zero value.
func (t SessionToken) IsZero() bool {
	return t.token == ""
}

// Equal compares tokens by their secret string, per §4.E.
func (t SessionToken) Equal(other SessionToken) bool {
	return t.token == other.token
}

// String never prints the token value.
func (t SessionToken) String() string {
	return "SessionToken{***}"
}
