package domain

import (
	"context"
	"strings"

	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
)

// AuthOptions is the immutable, per-method configuration record an
// authentication strategy is built from. Every method carries a default
// login path that callers may override, and every concrete type is only
// constructed through its builder's Build, which runs full validation in
// one place and returns a configuration error on any invalid combination.
type AuthOptions interface {
	// Method is the auth mount type, used to derive the default path
	// ("auth/<method>/login") when no override was given.
	Method() string
	// Path is the resolved login path, override or default.
	Path() string
}

func defaultPath(method, override string) string {
	if override != "" {
		return override
	}
	return "auth/" + method + "/login"
}

// CredentialSigner produces a signed credential string for a platform
// metadata based login (AWS IAM, GCP IAM, Azure managed identity). The
// core never touches the underlying signing key; it only consumes the
// resulting string.
type CredentialSigner interface {
	SignedCredential(ctx context.Context, role string) (string, error)
}

// JWTSupplier produces a service-account or platform-issued JWT for a
// token-exchange login (Kubernetes).
type JWTSupplier func(ctx context.Context) (string, error)

// --- Token ---

// TokenOptions configures the static-token flow: the supplied token is
// used as-is, with no login call.
type TokenOptions struct {
	token string
}

func (TokenOptions) Method() string { return "token" }
func (TokenOptions) Path() string   { return "" }
func (o TokenOptions) Token() string { return o.token }

type TokenOptionsBuilder struct {
	o TokenOptions
}

func NewTokenOptionsBuilder() *TokenOptionsBuilder { return &TokenOptionsBuilder{} }

func (b *TokenOptionsBuilder) WithToken(token string) *TokenOptionsBuilder {
	b.o.token = token
	return b
}

func (b *TokenOptionsBuilder) Build() (*TokenOptions, error) {
	if strings.TrimSpace(b.o.token) == "" {
		return nil, vaulterrors.NewConfigurationError("token auth requires a non-empty token", nil)
	}
	o := b.o
	return &o, nil
}

// --- AppRole ---

// AppRoleOptions configures the role-id/secret-id flow. Either a direct
// roleID (and secretID) or a pullToken (used to fetch them from the
// server in pull mode) must be supplied.
type AppRoleOptions struct {
	path      string
	roleID    string
	secretID  string
	pullToken string
}

func (o AppRoleOptions) Method() string  { return "approle" }
func (o AppRoleOptions) Path() string    { return defaultPath("approle", o.path) }
func (o AppRoleOptions) RoleID() string  { return o.roleID }
func (o AppRoleOptions) SecretID() string { return o.secretID }
func (o AppRoleOptions) PullToken() string { return o.pullToken }

type AppRoleOptionsBuilder struct{ o AppRoleOptions }

func NewAppRoleOptionsBuilder() *AppRoleOptionsBuilder { return &AppRoleOptionsBuilder{} }

func (b *AppRoleOptionsBuilder) WithPath(path string) *AppRoleOptionsBuilder {
	b.o.path = path
	return b
}
func (b *AppRoleOptionsBuilder) WithRoleID(roleID string) *AppRoleOptionsBuilder {
	b.o.roleID = roleID
	return b
}
func (b *AppRoleOptionsBuilder) WithSecretID(secretID string) *AppRoleOptionsBuilder {
	b.o.secretID = secretID
	return b
}
func (b *AppRoleOptionsBuilder) WithPullToken(token string) *AppRoleOptionsBuilder {
	b.o.pullToken = token
	return b
}

func (b *AppRoleOptionsBuilder) Build() (*AppRoleOptions, error) {
	var msgs []string
	if b.o.roleID == "" && b.o.pullToken == "" {
		msgs = append(msgs, "approle auth requires either role_id or a pull token")
	}
	if b.o.roleID != "" && b.o.secretID == "" && b.o.pullToken == "" {
		msgs = append(msgs, "approle auth with a direct role_id also requires secret_id or a pull token")
	}
	if errs := vaulterrors.NewValidationErrors(msgs...); errs != nil {
		return nil, vaulterrors.NewConfigurationError("invalid approle options", errs)
	}
	o := b.o
	return &o, nil
}

// --- AppRoleWrapped ---

// AppRoleWrappedOptions configures role-id login whose secret-id is
// delivered as a wrapped token: the flow unwraps cubbyhole/response first
// to obtain the real secret_id, then logs in normally.
type AppRoleWrappedOptions struct {
	path          string
	roleID        string
	wrappingToken string
}

func (o AppRoleWrappedOptions) Method() string        { return "approle" }
func (o AppRoleWrappedOptions) Path() string          { return defaultPath("approle", o.path) }
func (o AppRoleWrappedOptions) RoleID() string        { return o.roleID }
func (o AppRoleWrappedOptions) WrappingToken() string { return o.wrappingToken }

type AppRoleWrappedOptionsBuilder struct{ o AppRoleWrappedOptions }

func NewAppRoleWrappedOptionsBuilder() *AppRoleWrappedOptionsBuilder {
	return &AppRoleWrappedOptionsBuilder{}
}

func (b *AppRoleWrappedOptionsBuilder) WithPath(path string) *AppRoleWrappedOptionsBuilder {
	b.o.path = path
	return b
}
func (b *AppRoleWrappedOptionsBuilder) WithRoleID(roleID string) *AppRoleWrappedOptionsBuilder {
	b.o.roleID = roleID
	return b
}
func (b *AppRoleWrappedOptionsBuilder) WithWrappingToken(token string) *AppRoleWrappedOptionsBuilder {
	b.o.wrappingToken = token
	return b
}

func (b *AppRoleWrappedOptionsBuilder) Build() (*AppRoleWrappedOptions, error) {
	var msgs []string
	if b.o.roleID == "" {
		msgs = append(msgs, "approle wrapped auth requires role_id")
	}
	if b.o.wrappingToken == "" {
		msgs = append(msgs, "approle wrapped auth requires a wrapping token")
	}
	if errs := vaulterrors.NewValidationErrors(msgs...); errs != nil {
		return nil, vaulterrors.NewConfigurationError("invalid approle wrapped options", errs)
	}
	o := b.o
	return &o, nil
}

// --- Cert ---

// CertOptions configures TLS client-certificate login. The certificate
// itself is presented at the transport layer (out of scope here); the
// login call only needs the optional server-side cert role name.
type CertOptions struct {
	path string
	name string
}

func (o CertOptions) Method() string { return "cert" }
func (o CertOptions) Path() string   { return defaultPath("cert", o.path) }
func (o CertOptions) Name() string   { return o.name }

type CertOptionsBuilder struct{ o CertOptions }

func NewCertOptionsBuilder() *CertOptionsBuilder { return &CertOptionsBuilder{} }

func (b *CertOptionsBuilder) WithPath(path string) *CertOptionsBuilder {
	b.o.path = path
	return b
}
func (b *CertOptionsBuilder) WithName(name string) *CertOptionsBuilder {
	b.o.name = name
	return b
}

func (b *CertOptionsBuilder) Build() (*CertOptions, error) {
	o := b.o
	return &o, nil
}

// --- Kubernetes ---

// KubernetesOptions configures the service-account JWT flow.
type KubernetesOptions struct {
	path string
	role string
	jwt  JWTSupplier
}

func (o KubernetesOptions) Method() string { return "kubernetes" }
func (o KubernetesOptions) Path() string   { return defaultPath("kubernetes", o.path) }
func (o KubernetesOptions) Role() string   { return o.role }
func (o KubernetesOptions) JWT() JWTSupplier { return o.jwt }

type KubernetesOptionsBuilder struct{ o KubernetesOptions }

func NewKubernetesOptionsBuilder() *KubernetesOptionsBuilder { return &KubernetesOptionsBuilder{} }

func (b *KubernetesOptionsBuilder) WithPath(path string) *KubernetesOptionsBuilder {
	b.o.path = path
	return b
}
func (b *KubernetesOptionsBuilder) WithRole(role string) *KubernetesOptionsBuilder {
	b.o.role = role
	return b
}
func (b *KubernetesOptionsBuilder) WithJWT(jwt JWTSupplier) *KubernetesOptionsBuilder {
	b.o.jwt = jwt
	return b
}

func (b *KubernetesOptionsBuilder) Build() (*KubernetesOptions, error) {
	var msgs []string
	if b.o.role == "" {
		msgs = append(msgs, "kubernetes auth requires a role")
	}
	if b.o.jwt == nil {
		msgs = append(msgs, "kubernetes auth requires a JWT supplier")
	}
	if errs := vaulterrors.NewValidationErrors(msgs...); errs != nil {
		return nil, vaulterrors.NewConfigurationError("invalid kubernetes options", errs)
	}
	o := b.o
	return &o, nil
}

// --- Platform metadata + signed assertion (AWS IAM, GCP IAM, Azure) ---

// AWSIAMOptions configures AWS IAM authentication: the signer produces the
// signed STS GetCallerIdentity request the server validates.
type AWSIAMOptions struct {
	path   string
	role   string
	signer CredentialSigner
}

func (o AWSIAMOptions) Method() string          { return "aws" }
func (o AWSIAMOptions) Path() string            { return defaultPath("aws", o.path) }
func (o AWSIAMOptions) Role() string            { return o.role }
func (o AWSIAMOptions) Signer() CredentialSigner { return o.signer }

type AWSIAMOptionsBuilder struct{ o AWSIAMOptions }

func NewAWSIAMOptionsBuilder() *AWSIAMOptionsBuilder { return &AWSIAMOptionsBuilder{} }

func (b *AWSIAMOptionsBuilder) WithPath(path string) *AWSIAMOptionsBuilder {
	b.o.path = path
	return b
}
func (b *AWSIAMOptionsBuilder) WithRole(role string) *AWSIAMOptionsBuilder {
	b.o.role = role
	return b
}
func (b *AWSIAMOptionsBuilder) WithSigner(signer CredentialSigner) *AWSIAMOptionsBuilder {
	b.o.signer = signer
	return b
}

func (b *AWSIAMOptionsBuilder) Build() (*AWSIAMOptions, error) {
	if b.o.signer == nil {
		return nil, vaulterrors.NewConfigurationError("aws iam auth requires a credential signer", nil)
	}
	o := b.o
	return &o, nil
}

// GCPIAMOptions configures GCP IAM authentication: the signer produces the
// signed JWT the server validates against the service account.
type GCPIAMOptions struct {
	path   string
	role   string
	signer CredentialSigner
}

func (o GCPIAMOptions) Method() string          { return "gcp" }
func (o GCPIAMOptions) Path() string            { return defaultPath("gcp", o.path) }
func (o GCPIAMOptions) Role() string            { return o.role }
func (o GCPIAMOptions) Signer() CredentialSigner { return o.signer }

type GCPIAMOptionsBuilder struct{ o GCPIAMOptions }

func NewGCPIAMOptionsBuilder() *GCPIAMOptionsBuilder { return &GCPIAMOptionsBuilder{} }

func (b *GCPIAMOptionsBuilder) WithPath(path string) *GCPIAMOptionsBuilder {
	b.o.path = path
	return b
}
func (b *GCPIAMOptionsBuilder) WithRole(role string) *GCPIAMOptionsBuilder {
	b.o.role = role
	return b
}
func (b *GCPIAMOptionsBuilder) WithSigner(signer CredentialSigner) *GCPIAMOptionsBuilder {
	b.o.signer = signer
	return b
}

func (b *GCPIAMOptionsBuilder) Build() (*GCPIAMOptions, error) {
	if b.o.signer == nil {
		return nil, vaulterrors.NewConfigurationError("gcp iam auth requires a credential signer", nil)
	}
	o := b.o
	return &o, nil
}

// AzureOptions configures Azure managed-identity authentication: the
// signer produces the signed access token the server validates against
// Azure Resource Manager.
type AzureOptions struct {
	path           string
	role           string
	subscriptionID string
	resourceGroup  string
	signer         CredentialSigner
}

func (o AzureOptions) Method() string          { return "azure" }
func (o AzureOptions) Path() string            { return defaultPath("azure", o.path) }
func (o AzureOptions) Role() string            { return o.role }
func (o AzureOptions) SubscriptionID() string  { return o.subscriptionID }
func (o AzureOptions) ResourceGroup() string   { return o.resourceGroup }
func (o AzureOptions) Signer() CredentialSigner { return o.signer }

type AzureOptionsBuilder struct{ o AzureOptions }

func NewAzureOptionsBuilder() *AzureOptionsBuilder { return &AzureOptionsBuilder{} }

func (b *AzureOptionsBuilder) WithPath(path string) *AzureOptionsBuilder {
	b.o.path = path
	return b
}
func (b *AzureOptionsBuilder) WithRole(role string) *AzureOptionsBuilder {
	b.o.role = role
	return b
}
func (b *AzureOptionsBuilder) WithSubscriptionID(id string) *AzureOptionsBuilder {
	b.o.subscriptionID = id
	return b
}
func (b *AzureOptionsBuilder) WithResourceGroup(rg string) *AzureOptionsBuilder {
	b.o.resourceGroup = rg
	return b
}
func (b *AzureOptionsBuilder) WithSigner(signer CredentialSigner) *AzureOptionsBuilder {
	b.o.signer = signer
	return b
}

func (b *AzureOptionsBuilder) Build() (*AzureOptions, error) {
	if b.o.signer == nil {
		return nil, vaulterrors.NewConfigurationError("azure auth requires a credential signer", nil)
	}
	o := b.o
	return &o, nil
}

// --- Userpass / LDAP ---

// UserpassOptions configures username+password login.
type UserpassOptions struct {
	path     string
	username string
	password string
}

func (o UserpassOptions) Method() string   { return "userpass" }
func (o UserpassOptions) Path() string     { return defaultPath("userpass", o.path) + "/" + o.username }
func (o UserpassOptions) Username() string { return o.username }
func (o UserpassOptions) Password() string { return o.password }

type UserpassOptionsBuilder struct{ o UserpassOptions }

func NewUserpassOptionsBuilder() *UserpassOptionsBuilder { return &UserpassOptionsBuilder{} }

func (b *UserpassOptionsBuilder) WithPath(path string) *UserpassOptionsBuilder {
	b.o.path = path
	return b
}
func (b *UserpassOptionsBuilder) WithUsername(username string) *UserpassOptionsBuilder {
	b.o.username = username
	return b
}
func (b *UserpassOptionsBuilder) WithPassword(password string) *UserpassOptionsBuilder {
	b.o.password = password
	return b
}

func (b *UserpassOptionsBuilder) Build() (*UserpassOptions, error) {
	var msgs []string
	if b.o.username == "" {
		msgs = append(msgs, "userpass auth requires a username")
	}
	if b.o.password == "" {
		msgs = append(msgs, "userpass auth requires a password")
	}
	if errs := vaulterrors.NewValidationErrors(msgs...); errs != nil {
		return nil, vaulterrors.NewConfigurationError("invalid userpass options", errs)
	}
	o := b.o
	return &o, nil
}

// LDAPOptions configures LDAP username+password login.
type LDAPOptions struct {
	path     string
	username string
	password string
}

func (o LDAPOptions) Method() string   { return "ldap" }
func (o LDAPOptions) Path() string     { return defaultPath("ldap", o.path) + "/" + o.username }
func (o LDAPOptions) Username() string { return o.username }
func (o LDAPOptions) Password() string { return o.password }

type LDAPOptionsBuilder struct{ o LDAPOptions }

func NewLDAPOptionsBuilder() *LDAPOptionsBuilder { return &LDAPOptionsBuilder{} }

func (b *LDAPOptionsBuilder) WithPath(path string) *LDAPOptionsBuilder {
	b.o.path = path
	return b
}
func (b *LDAPOptionsBuilder) WithUsername(username string) *LDAPOptionsBuilder {
	b.o.username = username
	return b
}
func (b *LDAPOptionsBuilder) WithPassword(password string) *LDAPOptionsBuilder {
	b.o.password = password
	return b
}

func (b *LDAPOptionsBuilder) Build() (*LDAPOptions, error) {
	var msgs []string
	if b.o.username == "" {
		msgs = append(msgs, "ldap auth requires a username")
	}
	if b.o.password == "" {
		msgs = append(msgs, "ldap auth requires a password")
	}
	if errs := vaulterrors.NewValidationErrors(msgs...); errs != nil {
		return nil, vaulterrors.NewConfigurationError("invalid ldap options", errs)
	}
	o := b.o
	return &o, nil
}

// --- Cubbyhole unwrap (generic) ---

// CubbyholeUnwrapOptions configures the generic wrapped-token retrieval
// flow: unwrap cubbyhole/response and treat the unwrapped auth.client_token
// directly as the session token, with no secondary login call.
type CubbyholeUnwrapOptions struct {
	wrappingToken string
}

func (o CubbyholeUnwrapOptions) Method() string        { return "cubbyhole" }
func (o CubbyholeUnwrapOptions) Path() string          { return "cubbyhole/response" }
func (o CubbyholeUnwrapOptions) WrappingToken() string { return o.wrappingToken }

type CubbyholeUnwrapOptionsBuilder struct{ o CubbyholeUnwrapOptions }

func NewCubbyholeUnwrapOptionsBuilder() *CubbyholeUnwrapOptionsBuilder {
	return &CubbyholeUnwrapOptionsBuilder{}
}

func (b *CubbyholeUnwrapOptionsBuilder) WithWrappingToken(token string) *CubbyholeUnwrapOptionsBuilder {
	b.o.wrappingToken = token
	return b
}

func (b *CubbyholeUnwrapOptionsBuilder) Build() (*CubbyholeUnwrapOptions, error) {
	if b.o.wrappingToken == "" {
		return nil, vaulterrors.NewConfigurationError("cubbyhole unwrap requires a wrapping token", nil)
	}
	o := b.o
	return &o, nil
}
