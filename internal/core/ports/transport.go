// Package ports declares the interfaces the core depends on and is
// strictly independent of any concrete transport, scheduler, or
// certificate authority implementation.
package ports

import "context"

// Request describes one HTTP-shaped call: a method, a path resolved
// against the transport's configured base endpoint, optional headers, and
// an optional body the transport JSON-marshals.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
}

// Response carries a call's outcome: status, headers, and raw body.
// Implementations must distinguish 404 (absent resource) from other
// 4xx/5xx statuses, which callers do via IsNotFound/IsSuccess.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// IsSuccess reports a 2xx status.
func (r Response) IsSuccess() bool { return r.Status >= 200 && r.Status < 300 }

// IsNotFound reports exactly a 404 status.
func (r Response) IsNotFound() bool { return r.Status == 404 }

// Transport executes one prepared request and returns its response, or a
// transport error if the call could not complete at all (distinct from a
// non-2xx response, which is returned as a Response with no error). The
// core never synthesizes retries at this layer.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Future is a single-value, cancellable handle to an in-flight async call.
type Future interface {
	// Get blocks until the call completes, ctx is done, or the future was
	// cancelled, whichever happens first.
	Get(ctx context.Context) (Response, error)
	// Cancel requests cancellation of the in-flight call. Safe to call
	// more than once or after completion.
	Cancel()
}

// AsyncTransport is the non-blocking counterpart to Transport, used by the
// async step executor so it never blocks the calling goroutine.
type AsyncTransport interface {
	DoAsync(ctx context.Context, req Request) Future
}
