package ports

import "time"

// FileConfig is the YAML-decodable shape of a vaultsession configuration
// file: manager tuning plus exactly one auth method's options. It is a
// plain DTO — struct-tag validation only, no business logic — so that
// ports stays independent of the domain and services packages; translating
// a validated FileConfig into domain.AuthOptions/services.SessionManagerConfig
// is the adapter layer's job.
type FileConfig struct {
	Manager      ManagerFileConfig       `yaml:"manager" validate:"required"`
	Auth         AuthFileConfig          `yaml:"auth" validate:"required"`
	Certificates []CertificateFileConfig `yaml:"certificates,omitempty" validate:"omitempty,dive"`
}

// ManagerFileConfig configures the session manager's renewal behavior.
type ManagerFileConfig struct {
	// RenewalThreshold is a time.ParseDuration string, e.g. "30s".
	RenewalThreshold string `yaml:"renewal_threshold" validate:"required"`
	// LeaseStrategy is "drop_on_error" (default) or "retain_on_error".
	LeaseStrategy string `yaml:"lease_strategy" validate:"omitempty,oneof=drop_on_error retain_on_error"`
	// Address is the secrets-service base URL (e.g. "https://vault.internal:8200")
	// that cmd/vaultsession-cli resolves transport paths against. Left optional
	// here since ports has no notion of a default endpoint; callers that build
	// a real transport (the CLI) reject a blank Address themselves.
	Address string `yaml:"address,omitempty"`
}

// Duration parses RenewalThreshold, defaulting to zero if blank.
func (m ManagerFileConfig) Duration() (time.Duration, error) {
	if m.RenewalThreshold == "" {
		return 0, nil
	}
	return time.ParseDuration(m.RenewalThreshold)
}

// AuthFileConfig selects the login method and carries every method's
// options flattened into one struct; only the fields matching Method are
// read.
type AuthFileConfig struct {
	Method string `yaml:"method" validate:"required,oneof=token approle approle_wrapped cert kubernetes aws gcp azure userpass ldap cubbyhole"`

	Path string `yaml:"path,omitempty"`

	Token string `yaml:"token,omitempty"`

	RoleID        string `yaml:"role_id,omitempty"`
	SecretID      string `yaml:"secret_id,omitempty"`
	PullToken     string `yaml:"pull_token,omitempty"`
	WrappingToken string `yaml:"wrapping_token,omitempty"`

	CertName string `yaml:"cert_name,omitempty"`

	Role string `yaml:"role,omitempty"`

	SubscriptionID string `yaml:"subscription_id,omitempty"`
	ResourceGroup  string `yaml:"resource_group,omitempty"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// ServiceAccountTokenPath points at a mounted Kubernetes service-account
	// token (e.g. "/var/run/secrets/kubernetes.io/serviceaccount/token") read
	// fresh on every login/renewal. Only used when Method is "kubernetes".
	ServiceAccountTokenPath string `yaml:"service_account_token_path,omitempty"`
}

// CertificateFileConfig describes one certificate or trust anchor the CLI's
// certificate container should register and keep rotated.
type CertificateFileConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Kind is "bundle" (leaf certificate issued by a role) or "trust_anchor"
	// (CA/issuer certificate only, never rotated against a role).
	Kind string `yaml:"kind" validate:"required,oneof=bundle trust_anchor"`
	// Role is required when Kind is "bundle".
	Role string `yaml:"role,omitempty" validate:"required_if=Kind bundle"`
	// Issuer is required when Kind is "trust_anchor".
	Issuer     string `yaml:"issuer,omitempty" validate:"required_if=Kind trust_anchor"`
	CommonName string `yaml:"common_name,omitempty"`
	AltNames   []string `yaml:"alt_names,omitempty"`
	TTL        string `yaml:"ttl,omitempty"`
}
