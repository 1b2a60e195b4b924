package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// fakeTransport answers a fixed sequence of responses per path, recording
// every call it receives. It implements both ports.Transport and
// ports.AsyncTransport (synchronously) so it doubles for both executors.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string][]ports.Response
	errs      map[string][]error
	calls     []ports.Request
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string][]ports.Response),
		errs:      make(map[string][]error),
	}
}

func (f *fakeTransport) enqueue(path string, resp ports.Response, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = append(f.responses[path], resp)
	f.errs[path] = append(f.errs[path], err)
}

func (f *fakeTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	resps := f.responses[req.Path]
	errs := f.errs[req.Path]
	if len(resps) == 0 {
		return ports.Response{Status: 404}, nil
	}
	resp := resps[0]
	err := errs[0]
	if len(resps) > 1 {
		f.responses[req.Path] = resps[1:]
		f.errs[req.Path] = errs[1:]
	}
	return resp, err
}

type fakeFuture struct {
	resp ports.Response
	err  error
}

func (f fakeFuture) Get(ctx context.Context) (ports.Response, error) { return f.resp, f.err }
func (f fakeFuture) Cancel()                                         {}

func (f *fakeTransport) DoAsync(ctx context.Context, req ports.Request) ports.Future {
	resp, err := f.Do(ctx, req)
	return fakeFuture{resp: resp, err: err}
}

func (f *fakeTransport) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

func jsonBody(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func fakeResponse(t interface{ Helper() }, body string) ports.Response {
	if body == "" {
		return ports.Response{Status: 500}
	}
	return ports.Response{Status: 200, Body: []byte(body)}
}

func dummyErrorResponse(status int) ports.Response {
	return ports.Response{Status: status, Body: []byte(`{"errors":["permission denied"]}`)}
}

func assertErr() error {
	return errTransportFailure
}

var errTransportFailure = &transportFailure{}

type transportFailure struct{}

func (*transportFailure) Error() string { return "transport failure" }

func loginResponse(token string, leaseSeconds int64, renewable bool) ports.Response {
	env := domain.LoginEnvelope{Auth: &domain.AuthBlock{
		ClientToken:   token,
		LeaseDuration: leaseSeconds,
		Renewable:     renewable,
		TokenType:     "service",
	}}
	return ports.Response{Status: 200, Body: jsonBody(env)}
}

// fakeScheduler runs the first scheduled task synchronously, inline, the
// moment Schedule is called, so tests exercise the renewal callback without
// real timers. Later tasks (the reschedule a successful renewal or a
// re-login makes) are counted but never run, so the callback cannot recurse.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled int
	cancelled int
}

func (s *fakeScheduler) Schedule(ctx context.Context, delay time.Duration, task func(context.Context)) domain.CancelFunc {
	s.mu.Lock()
	s.scheduled++
	first := s.scheduled == 1
	s.mu.Unlock()
	if first {
		task(ctx)
	}
	return func() {
		s.mu.Lock()
		s.cancelled++
		s.mu.Unlock()
	}
}

// noopScheduler never fires; used where a test must prevent automatic
// background renewal from racing assertions.
type noopScheduler struct{}

func (noopScheduler) Schedule(ctx context.Context, delay time.Duration, task func(context.Context)) domain.CancelFunc {
	return func() {}
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedRandom struct{ value float64 }

func (r fixedRandom) Float64() float64 { return r.value }

// fakeStrategy is a services.AuthStrategy test double driven by a queue of
// (token, error) results, so a test can script a login failure followed by
// recovery.
type fakeStrategy struct {
	mu         sync.Mutex
	results    []strategyResult
	selfLookup bool
	calls      int
}

type strategyResult struct {
	tok domain.SessionToken
	err error
}

func (s *fakeStrategy) Login(ctx context.Context) (domain.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return domain.SessionToken{}, nil
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.tok, r.err
}

func (s *fakeStrategy) RequiresSelfLookup() bool { return s.selfLookup }
