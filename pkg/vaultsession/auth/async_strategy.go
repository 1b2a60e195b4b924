package auth

import (
	"context"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
)

// AsyncStrategy is the non-blocking counterpart to Strategy: it drives the
// same step graphs through an AsyncStepExecutor over a ports.AsyncTransport,
// so independent legs of a graph (reached through a Zip) run concurrently
// rather than one after another. Login still blocks the caller until the
// graph resolves, satisfying services.AuthStrategy; callers wanting the
// future directly should use LoginAsync.
type AsyncStrategy struct {
	executor   *services.AsyncStepExecutor
	graph      domain.Node
	selfLookup bool
}

func newAsyncStrategy(transport ports.AsyncTransport, graph domain.Node, selfLookup bool) *AsyncStrategy {
	return &AsyncStrategy{
		executor:   services.NewAsyncStepExecutor(transport),
		graph:      graph,
		selfLookup: selfLookup,
	}
}

// Login implements services.AuthStrategy by awaiting LoginAsync's future.
func (s *AsyncStrategy) Login(ctx context.Context) (domain.SessionToken, error) {
	return s.LoginAsync(ctx).Get(ctx)
}

// LoginAsync starts evaluating the graph and returns immediately.
func (s *AsyncStrategy) LoginAsync(ctx context.Context) services.TokenFuture {
	return s.executor.Execute(ctx, s.graph)
}

// RequiresSelfLookup implements services.AuthStrategy.
func (s *AsyncStrategy) RequiresSelfLookup() bool {
	return s.selfLookup
}

var _ services.AuthStrategy = (*AsyncStrategy)(nil)

// NewAppRoleAsyncStrategy is AppRole's async counterpart; the cubbyhole
// unwrap (pull mode) and the login call still execute back-to-back since
// the login body depends on the unwrap's result, but the evaluation never
// blocks the calling goroutine.
func NewAppRoleAsyncStrategy(transport ports.AsyncTransport, opts *domain.AppRoleOptions) *AsyncStrategy {
	graph, selfLookup := buildAppRoleGraph(opts)
	return newAsyncStrategy(transport, graph, selfLookup)
}

// NewKubernetesAsyncStrategy is Kubernetes's async counterpart.
func NewKubernetesAsyncStrategy(transport ports.AsyncTransport, opts *domain.KubernetesOptions) *AsyncStrategy {
	graph, selfLookup := buildKubernetesGraph(opts)
	return newAsyncStrategy(transport, graph, selfLookup)
}

// NewAWSIAMAsyncStrategy is AWS IAM's async counterpart.
func NewAWSIAMAsyncStrategy(transport ports.AsyncTransport, opts *domain.AWSIAMOptions) *AsyncStrategy {
	graph, selfLookup := buildAWSIAMGraph(opts)
	return newAsyncStrategy(transport, graph, selfLookup)
}
