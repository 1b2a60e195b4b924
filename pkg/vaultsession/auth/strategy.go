// Package auth supplies the concrete authentication strategies the core
// session manager drives through services.AuthStrategy: one constructor per
// supported login method, each assembling a step graph from
// internal/core/domain and handing it to a services.BlockingStepExecutor.
package auth

import (
	"context"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
)

// vaultTokenHeader is the header a secrets-service HTTP API expects a
// caller-presented token under, whether that token authorizes a lookup-self
// call, a cubbyhole unwrap, or a revoke-self.
const vaultTokenHeader = "X-Vault-Token"

// Strategy adapts one step graph into a services.AuthStrategy. It is
// stateless and restartable: Login may be called any number of times and
// re-evaluates the graph from scratch, so the same Strategy can back more
// than one SessionManager.
type Strategy struct {
	executor   *services.BlockingStepExecutor
	graph      domain.Node
	selfLookup bool
}

// newStrategy builds a Strategy over graph, evaluated against transport.
// selfLookup mirrors services.AuthStrategy.RequiresSelfLookup: true when the
// graph's terminal node yields a bare token with no lease metadata of its
// own.
func newStrategy(transport ports.Transport, graph domain.Node, selfLookup bool) *Strategy {
	return &Strategy{
		executor:   services.NewBlockingStepExecutor(transport),
		graph:      graph,
		selfLookup: selfLookup,
	}
}

// Login implements services.AuthStrategy.
func (s *Strategy) Login(ctx context.Context) (domain.SessionToken, error) {
	return s.executor.Execute(ctx, s.graph)
}

// RequiresSelfLookup implements services.AuthStrategy.
func (s *Strategy) RequiresSelfLookup() bool {
	return s.selfLookup
}

var _ services.AuthStrategy = (*Strategy)(nil)
