package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	domainerrors "github.com/sufield/vaultsession/internal/core/errors"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// TokenFuture is a single-value, cancellable handle to an in-flight
// asynchronous step-graph evaluation.
type TokenFuture interface {
	Get(ctx context.Context) (domain.SessionToken, error)
	Cancel()
}

type tokenFuture struct {
	done   chan struct{}
	result domain.SessionToken
	err    error
	cancel context.CancelFunc
}

func (f *tokenFuture) Get(ctx context.Context) (domain.SessionToken, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return domain.SessionToken{}, ctx.Err()
	}
}

func (f *tokenFuture) Cancel() { f.cancel() }

// AsyncStepExecutor interprets a step graph against an
// ports.AsyncTransport. It never blocks the calling goroutine: Execute
// returns a TokenFuture immediately and does its work on internal
// goroutines, cancelling in-flight requests and evaluating no further
// nodes once the caller cancels.
type AsyncStepExecutor struct {
	Transport ports.AsyncTransport
}

// NewAsyncStepExecutor builds an executor over the given async transport.
func NewAsyncStepExecutor(transport ports.AsyncTransport) *AsyncStepExecutor {
	return &AsyncStepExecutor{Transport: transport}
}

// Execute starts evaluating graph and returns immediately.
func (e *AsyncStepExecutor) Execute(ctx context.Context, graph domain.Node) TokenFuture {
	execCtx, cancel := context.WithCancel(ctx)
	f := &tokenFuture{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(f.done)
		memo := newAsyncMemo()
		val, err := e.eval(execCtx, graph, memo)
		if err != nil {
			f.err = err
			return
		}
		tok, ok := val.(domain.SessionToken)
		if !ok {
			f.err = domainerrors.NewConfigurationError("step graph root is not a terminal (SupplyToken or Login) node", nil)
			return
		}
		f.result = tok
	}()

	return f
}

type asyncMemoEntry struct {
	once sync.Once
	val  any
	err  error
}

type asyncMemo struct {
	mu      sync.Mutex
	entries map[uint64]*asyncMemoEntry
}

func newAsyncMemo() *asyncMemo {
	return &asyncMemo{entries: make(map[uint64]*asyncMemoEntry)}
}

func (m *asyncMemo) entry(id uint64) *asyncMemoEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		e = &asyncMemoEntry{}
		m.entries[id] = e
	}
	return e
}

func (e *AsyncStepExecutor) eval(ctx context.Context, node domain.Node, memo *asyncMemo) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := memo.entry(node.NodeID())
	entry.once.Do(func() {
		entry.val, entry.err = e.evalOnce(ctx, node, memo)
	})
	return entry.val, entry.err
}

func (e *AsyncStepExecutor) evalOnce(ctx context.Context, node domain.Node, memo *asyncMemo) (any, error) {
	switch n := node.(type) {
	case domain.SupplyTokenNode:
		return n.Value, nil

	case domain.SupplyValueNode:
		return n.Produce(ctx)

	case domain.HTTPRequestNode:
		return e.doHTTPRequestAsync(ctx, n)

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
		return e.evalZip(ctx, n, memo)

	case domain.LoginNode:
		return e.evalLoginAsync(ctx, n, memo)

	default:
		return nil, domainerrors.NewConfigurationError(fmt.Sprintf("unknown step node type %T", node), nil)
	}
}

// evalZip runs both branches concurrently, per §4.D. Either side's failure
// fails the whole evaluation; the other branch's context is left to the
// caller's own cancellation (the branches do not cancel each other so a
// slow-but-successful sibling is not wasted if only one side is wanted by
// dependent node, though in practice both are awaited here).
func (e *AsyncStepExecutor) evalZip(ctx context.Context, n domain.ZipNode, memo *asyncMemo) (any, error) {
	type branchResult struct {
		val any
		err error
	}
	leftCh := make(chan branchResult, 1)
	rightCh := make(chan branchResult, 1)

	go func() {
		v, err := e.eval(ctx, n.Left, memo)
		leftCh <- branchResult{v, err}
	}()
	go func() {
		v, err := e.eval(ctx, n.Right, memo)
		rightCh <- branchResult{v, err}
	}()

	left := <-leftCh
	right := <-rightCh
	if left.err != nil {
		return nil, left.err
	}
	if right.err != nil {
		return nil, right.err
	}
	return domain.Pair{Left: left.val, Right: right.val}, nil
}

func (e *AsyncStepExecutor) doHTTPRequestAsync(ctx context.Context, n domain.HTTPRequestNode) (any, error) {
	fut := e.Transport.DoAsync(ctx, ports.Request{Method: n.Method, Path: n.Path, Headers: n.Headers, Body: n.Body})
	resp, err := fut.Get(ctx)
	if err != nil {
		return nil, domainerrors.NewTransportError(n.Method, n.Path, err)
	}
	if !resp.IsSuccess() {
		return nil, domainerrors.NewServerError(n.Method, n.Path, resp.Status, string(resp.Body))
	}
	return parseResponse(resp, n.ResponseType)
}

func (e *AsyncStepExecutor) evalLoginAsync(ctx context.Context, n domain.LoginNode, memo *asyncMemo) (any, error) {
	parentVal, err := e.eval(ctx, n.Parent, memo)
	if err != nil {
		return nil, err
	}

	body := parentVal
	if n.BodyFn != nil {
		body, err = n.BodyFn(parentVal)
		if err != nil {
			return nil, domainerrors.NewLoginError("login", n.Path, err)
		}
	}

	fut := e.Transport.DoAsync(ctx, ports.Request{Method: http.MethodPost, Path: n.Path, Body: body})
	resp, err := fut.Get(ctx)
	if err != nil {
		return nil, domainerrors.NewLoginError("login", n.Path, domainerrors.NewTransportError(http.MethodPost, n.Path, err))
	}
	if !resp.IsSuccess() {
		return nil, domainerrors.NewLoginError("login", n.Path, domainerrors.NewServerError(http.MethodPost, n.Path, resp.Status, string(resp.Body)))
	}

	var env domain.LoginEnvelope
	if jsonErr := json.Unmarshal(resp.Body, &env); jsonErr != nil {
		return nil, domainerrors.NewLoginError("login", n.Path, jsonErr)
	}
	if env.Auth == nil || env.Auth.ClientToken == "" {
		return nil, domainerrors.NewLoginError("login", n.Path, fmt.Errorf("response missing auth block"))
	}

	return tokenFromAuthBlock(env.Auth), nil
}
