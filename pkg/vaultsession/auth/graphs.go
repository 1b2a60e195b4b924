package auth

import (
	"context"
	"fmt"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/services"
)

// Each buildXGraph function returns the step graph for one auth method and
// whether the resulting token lacks its own lease metadata and therefore
// needs a follow-up self-lookup (services.AuthStrategy.RequiresSelfLookup).

func buildTokenGraph(o *domain.TokenOptions) (domain.Node, bool) {
	return domain.Just(domain.Of(o.Token())), true
}

func buildAppRoleGraph(o *domain.AppRoleOptions) (domain.Node, bool) {
	if o.RoleID() != "" {
		roleID, secretID := o.RoleID(), o.SecretID()
		body := domain.FromSupplier(func(ctx context.Context) (any, error) {
			return map[string]any{"role_id": roleID, "secret_id": secretID}, nil
		})
		return domain.Login(body, o.Path()), false
	}

	pullToken := o.PullToken()
	unwrap := domain.FromHTTPRequest("GET", "cubbyhole/response",
		map[string]string{vaultTokenHeader: pullToken}, nil, domain.ResponseTypeCubbyholeEnvelope)
	creds := domain.Map(unwrap, func(v any) (any, error) {
		env, ok := v.(domain.CubbyholeEnvelope)
		if !ok {
			return nil, fmt.Errorf("unexpected unwrap response type %T", v)
		}
		data, err := services.UnwrapCubbyholeData(env)
		if err != nil {
			return nil, err
		}
		return map[string]any{"role_id": data["role_id"], "secret_id": data["secret_id"]}, nil
	})
	return domain.Login(creds, o.Path()), false
}

func buildAppRoleWrappedGraph(o *domain.AppRoleWrappedOptions) (domain.Node, bool) {
	roleID := o.RoleID()
	unwrap := domain.FromHTTPRequest("GET", "cubbyhole/response",
		map[string]string{vaultTokenHeader: o.WrappingToken()}, nil, domain.ResponseTypeCubbyholeEnvelope)
	secretID := domain.Map(unwrap, func(v any) (any, error) {
		env, ok := v.(domain.CubbyholeEnvelope)
		if !ok {
			return nil, fmt.Errorf("unexpected unwrap response type %T", v)
		}
		return services.UnwrapCubbyholeToken(env)
	})
	body := domain.Map(secretID, func(v any) (any, error) {
		return map[string]any{"role_id": roleID, "secret_id": v.(string)}, nil
	})
	return domain.Login(body, o.Path()), false
}

func buildCertGraph(o *domain.CertOptions) (domain.Node, bool) {
	name := o.Name()
	body := domain.FromSupplier(func(ctx context.Context) (any, error) {
		if name == "" {
			return map[string]any{}, nil
		}
		return map[string]any{"name": name}, nil
	})
	return domain.Login(body, o.Path()), false
}

func buildKubernetesGraph(o *domain.KubernetesOptions) (domain.Node, bool) {
	role, jwt := o.Role(), o.JWT()
	supplied := domain.FromSupplier(func(ctx context.Context) (any, error) {
		token, err := jwt(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"role": role, "jwt": token}, nil
	})
	return domain.Login(supplied, o.Path()), false
}

// buildSignedCredentialGraph is shared by AWS IAM, GCP IAM, and Azure: each
// login body is the role plus whatever opaque signed assertion the
// CredentialSigner produces, under a method-specific field name.
func buildSignedCredentialGraph(path, role, field string, signer domain.CredentialSigner, extra map[string]string) domain.Node {
	supplied := domain.FromSupplier(func(ctx context.Context) (any, error) {
		signed, err := signer.SignedCredential(ctx, role)
		if err != nil {
			return nil, err
		}
		body := map[string]any{"role": role, field: signed}
		for k, v := range extra {
			body[k] = v
		}
		return body, nil
	})
	return domain.Login(supplied, path)
}

func buildAWSIAMGraph(o *domain.AWSIAMOptions) (domain.Node, bool) {
	return buildSignedCredentialGraph(o.Path(), o.Role(), "signed_credential", o.Signer(), nil), false
}

func buildGCPIAMGraph(o *domain.GCPIAMOptions) (domain.Node, bool) {
	return buildSignedCredentialGraph(o.Path(), o.Role(), "jwt", o.Signer(), nil), false
}

func buildAzureGraph(o *domain.AzureOptions) (domain.Node, bool) {
	extra := map[string]string{}
	if o.SubscriptionID() != "" {
		extra["subscription_id"] = o.SubscriptionID()
	}
	if o.ResourceGroup() != "" {
		extra["resource_group"] = o.ResourceGroup()
	}
	return buildSignedCredentialGraph(o.Path(), o.Role(), "jwt", o.Signer(), extra), false
}

func buildUserpassGraph(o *domain.UserpassOptions) (domain.Node, bool) {
	password := o.Password()
	body := domain.FromSupplier(func(ctx context.Context) (any, error) {
		return map[string]any{"password": password}, nil
	})
	return domain.Login(body, o.Path()), false
}

func buildLDAPGraph(o *domain.LDAPOptions) (domain.Node, bool) {
	password := o.Password()
	body := domain.FromSupplier(func(ctx context.Context) (any, error) {
		return map[string]any{"password": password}, nil
	})
	return domain.Login(body, o.Path()), false
}

func buildCubbyholeUnwrapGraph(o *domain.CubbyholeUnwrapOptions) (domain.Node, bool) {
	unwrap := domain.FromHTTPRequest("GET", o.Path(),
		map[string]string{vaultTokenHeader: o.WrappingToken()}, nil, domain.ResponseTypeCubbyholeEnvelope)
	resolved := domain.Map(unwrap, func(v any) (any, error) {
		env, ok := v.(domain.CubbyholeEnvelope)
		if !ok {
			return nil, fmt.Errorf("unexpected unwrap response type %T", v)
		}
		return services.UnwrapCubbyholeSessionToken(env)
	})
	// The Map already yields a SessionToken, so it serves as the terminal
	// node as-is (the executor type-asserts the graph's final value, not the
	// node variant).
	return resolved, true
}
