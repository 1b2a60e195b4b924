package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sufield/vaultsession/internal/adapters/secondary/config"
	"github.com/sufield/vaultsession/internal/adapters/secondary/pki"
	"github.com/sufield/vaultsession/internal/adapters/secondary/scheduler"
	"github.com/sufield/vaultsession/internal/adapters/secondary/transport"
	"github.com/sufield/vaultsession/internal/adapters/logging"
	"github.com/sufield/vaultsession/internal/adapters/metrics"
	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
	"github.com/sufield/vaultsession/pkg/vaultsession"
	"github.com/sufield/vaultsession/pkg/vaultsession/auth"
)

// cliLogger is the CLI-wide structured logger: diagnostics go to stderr
// through the redacting handler so a sensitive field slipping into a log
// call (a token, a JWT, a PEM block) never reaches the terminal verbatim.
func cliLogger() *slog.Logger {
	return logging.NewSecureSlogLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// builtClient bundles the facade Client with the pieces commands need
// directly: the resolved file config (for display) and, once requested,
// a certificate authority used to populate the certificate container.
type builtClient struct {
	client    *vaultsession.Client
	cfg       *ports.FileConfig
	transport ports.Transport
}

// buildClientFromFile loads path through the FileProvider and
// wires a vaultsession.Client matching its auth method. It is the single
// place CLI commands go to turn --config into a usable client.
func buildClientFromFile(ctx context.Context, path string) (*builtClient, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --config is required", ErrConfig)
	}

	provider := config.NewFileProvider()
	cfg, err := provider.LoadConfiguration(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if cfg.Manager.Address == "" {
		return nil, fmt.Errorf("%w: manager.address is required to build a transport", ErrConfig)
	}
	logger := cliLogger()
	httpTransport, err := transport.NewHTTPTransport(cfg.Manager.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	httpTransport.WithLogger(logger)

	strategy, err := buildStrategy(httpTransport, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	renewalThreshold, err := cfg.Manager.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid renewal_threshold: %v", ErrConfig, err)
	}
	lease := services.LeaseStrategyDropOnError
	if cfg.Manager.LeaseStrategy == "retain_on_error" {
		lease = services.LeaseStrategyRetainOnError
	}

	client, err := vaultsession.New(strategy, httpTransport, scheduler.New(), vaultsession.ClientConfig{
		RenewalThreshold: renewalThreshold,
		LeaseStrategy:    lease,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	prom := metrics.NewPrometheusListener()
	client.EventBus().AddAuthListener(prom)
	client.EventBus().AddGlobalCertListener(prom)

	return &builtClient{client: client, cfg: cfg, transport: httpTransport}, nil
}

// buildStrategy dispatches cfg.Method to the matching pkg/vaultsession/auth
// constructor. Methods whose credentials are supplied at runtime rather
// than through a file (aws, gcp, azure) are not supported by the CLI.
func buildStrategy(t ports.Transport, cfg ports.AuthFileConfig) (services.AuthStrategy, error) {
	switch cfg.Method {
	case "token":
		opts, err := domain.NewTokenOptionsBuilder().WithToken(cfg.Token).Build()
		if err != nil {
			return nil, err
		}
		return auth.NewTokenStrategy(t, opts), nil

	case "approle":
		opts, err := domain.NewAppRoleOptionsBuilder().
			WithPath(cfg.Path).
			WithRoleID(cfg.RoleID).
			WithSecretID(cfg.SecretID).
			WithPullToken(cfg.PullToken).
			Build()
		if err != nil {
			return nil, err
		}
		return auth.NewAppRoleStrategy(t, opts), nil

	case "approle_wrapped":
		opts, err := domain.NewAppRoleWrappedOptionsBuilder().
			WithPath(cfg.Path).
			WithRoleID(cfg.RoleID).
			WithWrappingToken(cfg.WrappingToken).
			Build()
		if err != nil {
			return nil, err
		}
		return auth.NewAppRoleWrappedStrategy(t, opts), nil

	case "cert":
		opts, err := domain.NewCertOptionsBuilder().WithPath(cfg.Path).WithName(cfg.CertName).Build()
		if err != nil {
			return nil, err
		}
		return auth.NewCertStrategy(t, opts), nil

	case "kubernetes":
		if cfg.ServiceAccountTokenPath == "" {
			return nil, fmt.Errorf("kubernetes auth requires auth.service_account_token_path")
		}
		opts, err := domain.NewKubernetesOptionsBuilder().
			WithPath(cfg.Path).
			WithRole(cfg.Role).
			WithJWT(auth.NewServiceAccountTokenFileSupplier(cfg.ServiceAccountTokenPath)).
			Build()
		if err != nil {
			return nil, err
		}
		return auth.NewKubernetesStrategy(t, opts), nil

	case "userpass":
		opts, err := domain.NewUserpassOptionsBuilder().
			WithPath(cfg.Path).
			WithUsername(cfg.Username).
			WithPassword(cfg.Password).
			Build()
		if err != nil {
			return nil, err
		}
		return auth.NewUserpassStrategy(t, opts), nil

	case "ldap":
		opts, err := domain.NewLDAPOptionsBuilder().
			WithPath(cfg.Path).
			WithUsername(cfg.Username).
			WithPassword(cfg.Password).
			Build()
		if err != nil {
			return nil, err
		}
		return auth.NewLDAPStrategy(t, opts), nil

	case "cubbyhole":
		opts, err := domain.NewCubbyholeUnwrapOptionsBuilder().WithWrappingToken(cfg.WrappingToken).Build()
		if err != nil {
			return nil, err
		}
		return auth.NewCubbyholeUnwrapStrategy(t, opts), nil

	case "aws", "gcp", "azure":
		return nil, fmt.Errorf("auth method %q requires a runtime credential signer and is not configurable via file", cfg.Method)

	default:
		return nil, fmt.Errorf("unsupported auth method %q", cfg.Method)
	}
}

// certificateAuthority builds the HTTP-backed ports.CertificateAuthority
// sharing this client's transport, for commands that need to register
// certificates (cert list).
func (b *builtClient) certificateAuthority() ports.CertificateAuthority {
	return pki.New(b.transport)
}
