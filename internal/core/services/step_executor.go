package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domainerrors "github.com/sufield/vaultsession/internal/core/errors"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// BlockingStepExecutor interprets a step graph against a synchronous
// ports.Transport. Graphs are restartable: Execute may be called any
// number of times on the same graph and re-evaluates it from scratch each
// time, with no state carried between runs.
type BlockingStepExecutor struct {
	Transport ports.Transport
}

// NewBlockingStepExecutor builds an executor over the given transport.
func NewBlockingStepExecutor(transport ports.Transport) *BlockingStepExecutor {
	return &BlockingStepExecutor{Transport: transport}
}

// Execute evaluates graph depth-first, memoizing each node's result within
// this one evaluation so a node reachable through more than one Zip branch
// runs only once, and returns the resulting session token.
func (e *BlockingStepExecutor) Execute(ctx context.Context, graph domain.Node) (domain.SessionToken, error) {
	memo := make(map[uint64]any)
	val, err := e.eval(ctx, graph, memo)
	if err != nil {
		return domain.SessionToken{}, err
	}
	tok, ok := val.(domain.SessionToken)
	if !ok {
		return domain.SessionToken{}, domainerrors.NewConfigurationError("step graph root is not a terminal (SupplyToken or Login) node", nil)
	}
	return tok, nil
}

func (e *BlockingStepExecutor) eval(ctx context.Context, node domain.Node, memo map[uint64]any) (any, error) {
	if v, ok := memo[node.NodeID()]; ok {
		return v, nil
	}
	v, err := e.evalOnce(ctx, node, memo)
	if err != nil {
		return nil, err
	}
	memo[node.NodeID()] = v
	return v, nil
}

func (e *BlockingStepExecutor) evalOnce(ctx context.Context, node domain.Node, memo map[uint64]any) (any, error) {
	switch n := node.(type) {
	case domain.SupplyTokenNode:
		return n.Value, nil

	case domain.SupplyValueNode:
		v, err := n.Produce(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil

	case domain.HTTPRequestNode:
		return doHTTPRequest(ctx, e.Transport, n)

	case domain.MapNode:
		parentVal, err := e.eval(ctx, n.Parent, memo)
		if err != nil {
			return nil, err
		}
		return n.Fn(parentVal)

	case domain.OnNextNode:
		parentVal, err := e.eval(ctx, n.Parent, memo)
		if err != nil {
			return nil, err
		}
		if err := n.SideEffect(parentVal); err != nil {
			return nil, err
		}
		return parentVal, nil

	case domain.ZipNode:
		leftVal, err := e.eval(ctx, n.Left, memo)
		if err != nil {
			return nil, err
		}
		rightVal, err := e.eval(ctx, n.Right, memo)
		if err != nil {
			return nil, err
		}
		return domain.Pair{Left: leftVal, Right: rightVal}, nil

	case domain.LoginNode:
		return evalLogin(ctx, e.Transport, n, func(parent domain.Node) (any, error) {
			return e.eval(ctx, parent, memo)
		})

	default:
		return nil, domainerrors.NewConfigurationError(fmt.Sprintf("unknown step node type %T", node), nil)
	}
}

// doHTTPRequest issues req and parses its response according to
// n.ResponseType, distinguishing transport failures from non-2xx
// responses per §4.A.
func doHTTPRequest(ctx context.Context, transport ports.Transport, n domain.HTTPRequestNode) (any, error) {
	resp, err := transport.Do(ctx, ports.Request{Method: n.Method, Path: n.Path, Headers: n.Headers, Body: n.Body})
	if err != nil {
		return nil, domainerrors.NewTransportError(n.Method, n.Path, err)
	}
	if !resp.IsSuccess() {
		return nil, domainerrors.NewServerError(n.Method, n.Path, resp.Status, string(resp.Body))
	}
	return parseResponse(resp, n.ResponseType)
}

func parseResponse(resp ports.Response, responseType domain.ResponseType) (any, error) {
	switch responseType {
	case domain.ResponseTypeLoginEnvelope:
		var env domain.LoginEnvelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, domainerrors.NewConfigurationError("malformed login envelope", err)
		}
		return env, nil
	case domain.ResponseTypeLookupSelfEnvelope:
		var env domain.LookupSelfEnvelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, domainerrors.NewConfigurationError("malformed lookup-self envelope", err)
		}
		return env, nil
	case domain.ResponseTypeCubbyholeEnvelope:
		var env domain.CubbyholeEnvelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, domainerrors.NewConfigurationError("malformed cubbyhole envelope", err)
		}
		return env, nil
	default:
		var raw map[string]any
		if err := json.Unmarshal(resp.Body, &raw); err != nil {
			return resp.Body, nil
		}
		return raw, nil
	}
}

// evalLogin is shared between the blocking and async executors: it
// computes the request body, POSTs it, and extracts a session token from
// the response's auth block.
func evalLogin(ctx context.Context, transport ports.Transport, n domain.LoginNode, evalParent func(domain.Node) (any, error)) (any, error) {
	parentVal, err := evalParent(n.Parent)
	if err != nil {
		return nil, err
	}

	var body any = parentVal
	if n.BodyFn != nil {
		body, err = n.BodyFn(parentVal)
		if err != nil {
			return nil, domainerrors.NewLoginError("login", n.Path, err)
		}
	}

	resp, err := transport.Do(ctx, ports.Request{Method: http.MethodPost, Path: n.Path, Body: body})
	if err != nil {
		return nil, domainerrors.NewLoginError("login", n.Path, domainerrors.NewTransportError(http.MethodPost, n.Path, err))
	}
	if !resp.IsSuccess() {
		return nil, domainerrors.NewLoginError("login", n.Path, domainerrors.NewServerError(http.MethodPost, n.Path, resp.Status, string(resp.Body)))
	}

	var env domain.LoginEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, domainerrors.NewLoginError("login", n.Path, err)
	}
	if env.Auth == nil || env.Auth.ClientToken == "" {
		return nil, domainerrors.NewLoginError("login", n.Path, fmt.Errorf("response missing auth block"))
	}

	return tokenFromAuthBlock(env.Auth), nil
}

// tokenFromAuthBlock builds a SessionToken from a login/renew response's
// auth block. A missing token_type stays unknown; the type predicates
// already treat unknown as service.
func tokenFromAuthBlock(auth *domain.AuthBlock) domain.SessionToken {
	b := domain.NewSessionTokenBuilder(auth.ClientToken).
		Renewable(auth.Renewable).
		LeaseDuration(time.Duration(auth.LeaseDuration) * time.Second).
		Type(domain.TokenType(auth.TokenType))
	if auth.Accessor != "" {
		b = b.Accessor(auth.Accessor)
	}
	return b.Build()
}
