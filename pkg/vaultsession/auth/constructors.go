package auth

import (
	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// NewTokenStrategy builds the static-token strategy: the configured token is
// used as-is, with no login call and no lease metadata of its own.
func NewTokenStrategy(transport ports.Transport, opts *domain.TokenOptions) *Strategy {
	graph, selfLookup := buildTokenGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewAppRoleStrategy builds the role-id/secret-id strategy. When opts was
// built with a direct role_id it logs in immediately; when built with a
// pull token it first unwraps cubbyhole/response to retrieve role_id and
// secret_id before logging in.
func NewAppRoleStrategy(transport ports.Transport, opts *domain.AppRoleOptions) *Strategy {
	graph, selfLookup := buildAppRoleGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewAppRoleWrappedStrategy builds the role-id login whose secret_id
// arrives as a wrapped token: it unwraps cubbyhole/response for the bare
// secret_id, then logs in with role_id and the unwrapped value.
func NewAppRoleWrappedStrategy(transport ports.Transport, opts *domain.AppRoleWrappedOptions) *Strategy {
	graph, selfLookup := buildAppRoleWrappedGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewCertStrategy builds the TLS client-certificate strategy. The
// certificate itself must already be configured on the transport; this
// strategy only issues the login call that exchanges it for a token.
func NewCertStrategy(transport ports.Transport, opts *domain.CertOptions) *Strategy {
	graph, selfLookup := buildCertGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewKubernetesStrategy builds the service-account JWT exchange strategy.
func NewKubernetesStrategy(transport ports.Transport, opts *domain.KubernetesOptions) *Strategy {
	graph, selfLookup := buildKubernetesGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewAWSIAMStrategy builds the AWS IAM signed-request strategy.
func NewAWSIAMStrategy(transport ports.Transport, opts *domain.AWSIAMOptions) *Strategy {
	graph, selfLookup := buildAWSIAMGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewGCPIAMStrategy builds the GCP IAM signed-JWT strategy.
func NewGCPIAMStrategy(transport ports.Transport, opts *domain.GCPIAMOptions) *Strategy {
	graph, selfLookup := buildGCPIAMGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewAzureStrategy builds the Azure managed-identity strategy.
func NewAzureStrategy(transport ports.Transport, opts *domain.AzureOptions) *Strategy {
	graph, selfLookup := buildAzureGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewUserpassStrategy builds the username+password strategy.
func NewUserpassStrategy(transport ports.Transport, opts *domain.UserpassOptions) *Strategy {
	graph, selfLookup := buildUserpassGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewLDAPStrategy builds the LDAP username+password strategy.
func NewLDAPStrategy(transport ports.Transport, opts *domain.LDAPOptions) *Strategy {
	graph, selfLookup := buildLDAPGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}

// NewCubbyholeUnwrapStrategy builds the generic wrapped-token retrieval
// strategy: unwrap cubbyhole/response and treat the result directly as the
// session token, with no secondary login call.
func NewCubbyholeUnwrapStrategy(transport ports.Transport, opts *domain.CubbyholeUnwrapOptions) *Strategy {
	graph, selfLookup := buildCubbyholeUnwrapGraph(opts)
	return newStrategy(transport, graph, selfLookup)
}
