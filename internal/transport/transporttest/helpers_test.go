package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/AIAleph/offchain_harness/internal/transport"
)

// recordingT collects failures without stopping the goroutine.
type recordingT struct {
	mu       sync.Mutex
	messages []string
	stopped  bool
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recordingT) FailNow() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *recordingT) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped && len(r.messages) > 0
}

type realResponse struct{ body map[string]any }

func (r realResponse) StatusCode() int               { return 200 }
func (r realResponse) JSON() (map[string]any, error) { return r.body, nil }
func (r realResponse) RaiseForStatus() error         { return nil }

type mockSession struct{ mock.Mock }

func (m *mockSession) Request(ctx context.Context, method, url string, opts transport.Options) (transport.Response, error) {
	args := m.Called(ctx, method, url, opts)
	resp, _ := args.Get(0).(transport.Response)
	return resp, args.Error(1)
}

// countingFactory hands out one session per URL and counts lookups.
type countingFactory struct {
	mu       sync.Mutex
	sessions map[string]*mockSession
	calls    int
}

func newCountingFactory() *countingFactory {
	return &countingFactory{sessions: map[string]*mockSession{}}
}

func (f *countingFactory) Session(url string) transport.Requester {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s, ok := f.sessions[url]
	if !ok {
		s = &mockSession{}
		f.sessions[url] = s
	}
	return s
}

func (f *countingFactory) session(url string) *mockSession {
	return f.Session(url).(*mockSession)
}

func (f *countingFactory) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type asyncRealResponse struct{ body map[string]any }

func (r *asyncRealResponse) Status() int { return 200 }
func (r *asyncRealResponse) JSON(context.Context) (map[string]any, error) {
	return r.body, nil
}
func (r *asyncRealResponse) RaiseForStatus() error { return nil }

type asyncCall struct {
	method string
	url    string
	opts   transport.AsyncOptions
}

type asyncStubFactory struct {
	mu      sync.Mutex
	calls   []asyncCall
	lookups int
	resp    transport.AsyncResponse
	err     error
}

func (f *asyncStubFactory) AsyncSession(_ context.Context, _ string) (transport.AsyncRequester, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f, nil
}

func (f *asyncStubFactory) Request(_ context.Context, method, url string, opts transport.AsyncOptions) transport.Awaitable {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asyncCall{method: method, url: url, opts: opts})
	if f.err != nil {
		return transport.Failed(f.err)
	}
	return transport.Ready(f.resp)
}

func (f *asyncStubFactory) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}
