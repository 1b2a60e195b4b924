// Package transport provides a net/http-backed implementation of
// ports.Transport and ports.AsyncTransport, the concrete collaborator the
// core's step executors drive.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sufield/vaultsession/internal/core/ports"
)

// HTTPTransport issues requests against one base URL using a shared
// *http.Client, implementing both the blocking and async transport ports.
type HTTPTransport struct {
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPTransport builds an HTTPTransport. baseURL is resolved against
// every request's Path; httpClient defaults to http.DefaultClient if nil.
func NewHTTPTransport(baseURL string, httpClient *http.Client) (*HTTPTransport, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport base URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{baseURL: parsed, client: httpClient, logger: slog.Default()}, nil
}

// WithLogger sets the logger used for request-level diagnostics.
func (t *HTTPTransport) WithLogger(logger *slog.Logger) *HTTPTransport {
	if logger != nil {
		t.logger = logger
	}
	return t
}

func (t *HTTPTransport) resolve(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	ref := &url.URL{Path: trimmed}
	return t.baseURL.ResolveReference(ref).String()
}

func (t *HTTPTransport) buildRequest(ctx context.Context, req ports.Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.resolve(req.Path), bodyReader)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Vault-Request-Id", uuid.New().String())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Do implements ports.Transport.
func (t *HTTPTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return ports.Response{}, err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return ports.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.Response{}, fmt.Errorf("reading response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	t.logger.Debug("http transport call", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	return ports.Response{Status: resp.StatusCode, Headers: headers, Body: body}, nil
}

// httpFuture adapts a background goroutine's Do call into a ports.Future.
type httpFuture struct {
	once   sync.Once
	done   chan struct{}
	resp   ports.Response
	err    error
	cancel context.CancelFunc
}

func (f *httpFuture) Get(ctx context.Context) (ports.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return ports.Response{}, ctx.Err()
	}
}

func (f *httpFuture) Cancel() {
	f.once.Do(f.cancel)
}

// DoAsync implements ports.AsyncTransport.
func (t *HTTPTransport) DoAsync(ctx context.Context, req ports.Request) ports.Future {
	callCtx, cancel := context.WithCancel(ctx)
	f := &httpFuture{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(f.done)
		f.resp, f.err = t.Do(callCtx, req)
	}()

	return f
}

var (
	_ ports.Transport      = (*HTTPTransport)(nil)
	_ ports.AsyncTransport = (*HTTPTransport)(nil)
)
