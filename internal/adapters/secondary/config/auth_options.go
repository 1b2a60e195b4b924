package config

import (
	"fmt"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
)

// BuildAuthOptions translates a validated AuthFileConfig into the concrete
// domain.AuthOptions its Method selects. Kubernetes, AWS, GCP, and Azure
// need a runtime callback (a JWTSupplier or CredentialSigner) that cannot
// be expressed in YAML; callers of those methods must pass one in, and a
// nil callback for a method that requires one is a configuration error
// rather than a nil-pointer panic later in the step graph.
func BuildAuthOptions(fc ports.AuthFileConfig, jwt domain.JWTSupplier, signer domain.CredentialSigner) (domain.AuthOptions, error) {
	switch fc.Method {
	case "token":
		return domain.NewTokenOptionsBuilder().WithToken(fc.Token).Build()

	case "approle":
		b := domain.NewAppRoleOptionsBuilder().
			WithPath(fc.Path).
			WithRoleID(fc.RoleID).
			WithSecretID(fc.SecretID).
			WithPullToken(fc.PullToken)
		return b.Build()

	case "approle_wrapped":
		b := domain.NewAppRoleWrappedOptionsBuilder().
			WithPath(fc.Path).
			WithRoleID(fc.RoleID).
			WithWrappingToken(fc.WrappingToken)
		return b.Build()

	case "cert":
		return domain.NewCertOptionsBuilder().WithPath(fc.Path).WithName(fc.CertName).Build()

	case "kubernetes":
		if jwt == nil {
			return nil, vaulterrors.NewConfigurationError("kubernetes auth requires a JWT supplier, which cannot come from a config file", nil)
		}
		return domain.NewKubernetesOptionsBuilder().WithPath(fc.Path).WithRole(fc.Role).WithJWT(jwt).Build()

	case "aws":
		if signer == nil {
			return nil, vaulterrors.NewConfigurationError("aws auth requires a credential signer, which cannot come from a config file", nil)
		}
		return domain.NewAWSIAMOptionsBuilder().WithPath(fc.Path).WithRole(fc.Role).WithSigner(signer).Build()

	case "gcp":
		if signer == nil {
			return nil, vaulterrors.NewConfigurationError("gcp auth requires a credential signer, which cannot come from a config file", nil)
		}
		return domain.NewGCPIAMOptionsBuilder().WithPath(fc.Path).WithRole(fc.Role).WithSigner(signer).Build()

	case "azure":
		if signer == nil {
			return nil, vaulterrors.NewConfigurationError("azure auth requires a credential signer, which cannot come from a config file", nil)
		}
		return domain.NewAzureOptionsBuilder().
			WithPath(fc.Path).
			WithRole(fc.Role).
			WithSubscriptionID(fc.SubscriptionID).
			WithResourceGroup(fc.ResourceGroup).
			WithSigner(signer).
			Build()

	case "userpass":
		return domain.NewUserpassOptionsBuilder().WithPath(fc.Path).WithUsername(fc.Username).WithPassword(fc.Password).Build()

	case "ldap":
		return domain.NewLDAPOptionsBuilder().WithPath(fc.Path).WithUsername(fc.Username).WithPassword(fc.Password).Build()

	case "cubbyhole":
		return domain.NewCubbyholeUnwrapOptionsBuilder().WithWrappingToken(fc.WrappingToken).Build()

	default:
		return nil, vaulterrors.NewConfigurationError(fmt.Sprintf("unknown auth method %q", fc.Method), nil)
	}
}

// BuildLeaseStrategy translates the file's lease_strategy string into the
// services enum, defaulting to LeaseStrategyDropOnError.
func BuildLeaseStrategy(value string) services.LeaseStrategy {
	if value == "retain_on_error" {
		return services.LeaseStrategyRetainOnError
	}
	return services.LeaseStrategyDropOnError
}
