// Package transport is the boundary between code that issues outbound HTTP
// calls and the sessions that perform them. Every method entry point of a
// Client routes through a Dispatcher, so tests can swap the dispatch for a
// single method without touching shared state.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the per-call timeout callers pass on every request.
const DefaultTimeout = 10 * time.Second

var (
	ErrUnsupportedMethod = errors.New("transport: unsupported method")
	ErrNoDispatcher      = errors.New("transport: no dispatcher configured")
)

// Options carries the per-call options of a synchronous request.
type Options struct {
	Timeout time.Duration
	// Data is the form body of a POST.
	Data   map[string]string
	Header http.Header
}

// Response is the surface of a completed synchronous response.
type Response interface {
	StatusCode() int
	JSON() (map[string]any, error)
	RaiseForStatus() error
}

// Requester issues a request of any method. Sessions implement it.
type Requester interface {
	Request(ctx context.Context, method, url string, opts Options) (Response, error)
}

// SessionFactory returns a reusable session for url. Implementations must
// return the same session for the same url while it is cached.
type SessionFactory interface {
	Session(url string) Requester
}

// Dispatcher handles the calls of one method entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, url string, opts Options) (Response, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, method, url string, opts Options) (Response, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, method, url string, opts Options) (Response, error) {
	return f(ctx, method, url, opts)
}

// StatusError reports a 4xx/5xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	kind := "server error"
	if e.StatusCode < 500 {
		kind = "client error"
	}
	return fmt.Sprintf("%d %s: %s %s", e.StatusCode, kind, e.Method, e.URL)
}

// CheckStatus returns a *StatusError for 4xx/5xx codes and nil otherwise.
func CheckStatus(method, url string, code int) error {
	if code >= 400 && code < 600 {
		return &StatusError{Method: method, URL: url, StatusCode: code}
	}
	return nil
}

// NormalizeMethod upper-cases method and rejects anything but GET and POST.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

// forwarder is the default dispatch: a session per url from the factory.
type forwarder struct {
	sessions SessionFactory
}

func (f forwarder) Dispatch(ctx context.Context, method, url string, opts Options) (Response, error) {
	return f.sessions.Session(url).Request(ctx, method, url, opts)
}

// Client exposes GET and POST entry points over pluggable dispatchers.
type Client struct {
	dispatch map[string]Dispatcher
}

// ClientOption customizes a Client.
type ClientOption func(*Client) error

// WithDispatcher replaces the dispatcher of one method entry point.
func WithDispatcher(method string, d Dispatcher) ClientOption {
	return func(c *Client) error {
		m, err := NormalizeMethod(method)
		if err != nil {
			return err
		}
		c.dispatch[m] = d
		return nil
	}
}

// NewClient builds a Client whose entry points forward to sessions unless
// overridden. sessions may be nil when every method gets a dispatcher.
func NewClient(sessions SessionFactory, opts ...ClientOption) (*Client, error) {
	c := &Client{dispatch: make(map[string]Dispatcher, 2)}
	if sessions != nil {
		c.dispatch[http.MethodGet] = forwarder{sessions: sessions}
		c.dispatch[http.MethodPost] = forwarder{sessions: sessions}
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Install replaces the dispatcher of method on an existing client.
func (c *Client) Install(method string, d Dispatcher) error {
	return WithDispatcher(method, d)(c)
}

func (c *Client) do(ctx context.Context, method, url string, opts Options) (Response, error) {
	d, ok := c.dispatch[method]
	if !ok || d == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoDispatcher, method)
	}
	return d.Dispatch(ctx, method, url, opts)
}

// Get issues a GET through the GET dispatcher.
func (c *Client) Get(ctx context.Context, url string, opts Options) (Response, error) {
	return c.do(ctx, http.MethodGet, url, opts)
}

// Post issues a POST through the POST dispatcher.
func (c *Client) Post(ctx context.Context, url string, opts Options) (Response, error) {
	return c.do(ctx, http.MethodPost, url, opts)
}
