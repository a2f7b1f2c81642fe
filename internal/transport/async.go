package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ClientTimeout is the timeout configuration of an asynchronous client. It is
// comparable, so two configurations are equal when every field is.
type ClientTimeout struct {
	Total    time.Duration
	Connect  time.Duration
	SockRead time.Duration
}

// NewClientTimeout returns a configuration bounding the whole call by total.
func NewClientTimeout(total time.Duration) ClientTimeout {
	return ClientTimeout{Total: total}
}

// DefaultClientTimeout is DefaultTimeout expressed as a ClientTimeout.
func DefaultClientTimeout() ClientTimeout {
	return NewClientTimeout(DefaultTimeout)
}

// AsyncOptions carries the per-call options of an asynchronous request.
type AsyncOptions struct {
	Timeout ClientTimeout
	Data    map[string]string
	Header  http.Header
}

// AsyncResponse is the surface of an asynchronous response. Reading the body
// may wait, so JSON takes a context.
type AsyncResponse interface {
	Status() int
	JSON(ctx context.Context) (map[string]any, error)
	RaiseForStatus() error
}

// Awaitable is an in-flight response.
type Awaitable interface {
	Await(ctx context.Context) (AsyncResponse, error)
}

// AsyncRequester issues asynchronous requests. Async sessions implement it.
type AsyncRequester interface {
	Request(ctx context.Context, method, url string, opts AsyncOptions) Awaitable
}

// AsyncSessionFactory returns the async session cached for url.
type AsyncSessionFactory interface {
	AsyncSession(ctx context.Context, url string) (AsyncRequester, error)
}

// AsyncDispatcher handles the calls of one async method entry point.
type AsyncDispatcher interface {
	Dispatch(ctx context.Context, method, url string, opts AsyncOptions) Awaitable
}

// AsyncDispatcherFunc adapts a function to AsyncDispatcher.
type AsyncDispatcherFunc func(ctx context.Context, method, url string, opts AsyncOptions) Awaitable

func (f AsyncDispatcherFunc) Dispatch(ctx context.Context, method, url string, opts AsyncOptions) Awaitable {
	return f(ctx, method, url, opts)
}

// Future is the result of work running on its own goroutine.
type Future struct {
	done chan struct{}
	resp AsyncResponse
	err  error
}

// Go runs fn on a new goroutine and returns its Future.
func Go(ctx context.Context, fn func(ctx context.Context) (AsyncResponse, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.resp, f.err = fn(ctx)
	}()
	return f
}

// Ready returns a completed Future holding resp.
func Ready(resp AsyncResponse) *Future {
	f := &Future{done: make(chan struct{}), resp: resp}
	close(f.done)
	return f
}

// Failed returns a completed Future holding err.
func Failed(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await waits for the result or for ctx to end, whichever comes first.
func (f *Future) Await(ctx context.Context) (AsyncResponse, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	default:
	}
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type asyncForwarder struct {
	sessions AsyncSessionFactory
}

func (f asyncForwarder) Dispatch(ctx context.Context, method, url string, opts AsyncOptions) Awaitable {
	return Go(ctx, func(ctx context.Context) (AsyncResponse, error) {
		s, err := f.sessions.AsyncSession(ctx, url)
		if err != nil {
			return nil, err
		}
		return s.Request(ctx, method, url, opts).Await(ctx)
	})
}

// AsyncClient exposes GET and POST entry points over pluggable async dispatchers.
type AsyncClient struct {
	dispatch map[string]AsyncDispatcher
}

// AsyncClientOption customizes an AsyncClient.
type AsyncClientOption func(*AsyncClient) error

// WithAsyncDispatcher replaces the dispatcher of one method entry point.
func WithAsyncDispatcher(method string, d AsyncDispatcher) AsyncClientOption {
	return func(c *AsyncClient) error {
		m, err := NormalizeMethod(method)
		if err != nil {
			return err
		}
		c.dispatch[m] = d
		return nil
	}
}

// NewAsyncClient mirrors NewClient for asynchronous sessions.
func NewAsyncClient(sessions AsyncSessionFactory, opts ...AsyncClientOption) (*AsyncClient, error) {
	c := &AsyncClient{dispatch: make(map[string]AsyncDispatcher, 2)}
	if sessions != nil {
		c.dispatch[http.MethodGet] = asyncForwarder{sessions: sessions}
		c.dispatch[http.MethodPost] = asyncForwarder{sessions: sessions}
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Install replaces the dispatcher of method on an existing client.
func (c *AsyncClient) Install(method string, d AsyncDispatcher) error {
	return WithAsyncDispatcher(method, d)(c)
}

func (c *AsyncClient) do(ctx context.Context, method, url string, opts AsyncOptions) Awaitable {
	d, ok := c.dispatch[method]
	if !ok || d == nil {
		return Failed(fmt.Errorf("%w for %s", ErrNoDispatcher, method))
	}
	return d.Dispatch(ctx, method, url, opts)
}

// Get issues an asynchronous GET.
func (c *AsyncClient) Get(ctx context.Context, url string, opts AsyncOptions) Awaitable {
	return c.do(ctx, http.MethodGet, url, opts)
}

// Post issues an asynchronous POST.
func (c *AsyncClient) Post(ctx context.Context, url string, opts AsyncOptions) Awaitable {
	return c.do(ctx, http.MethodPost, url, opts)
}
