package session

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// httpNewRequest is a test seam to stub request creation errors.
var httpNewRequest = http.NewRequestWithContext

// Session is a reusable HTTP session bound to one URL. It owns its client and
// connection pool.
type Session struct {
	id     string
	url    string
	client *http.Client
}

func newSession(target string, client *http.Client) *Session {
	return &Session{id: uuid.NewString(), url: target, client: client}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) close() { s.client.CloseIdleConnections() }

// Request performs method against target. POST form data is url-encoded and
// opts.Timeout bounds the whole exchange including the body read.
func (s *Session) Request(ctx context.Context, method, target string, opts transport.Options) (transport.Response, error) {
	return s.do(ctx, method, target, opts.Timeout, opts.Data, opts.Header)
}

func (s *Session) do(ctx context.Context, method, target string, timeout time.Duration, data map[string]string, header http.Header) (*HTTPResponse, error) {
	method = strings.ToUpper(method)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var body io.Reader
	if len(data) > 0 {
		form := make(url.Values, len(data))
		for k, v := range data {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}
	req, err := httpNewRequest(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logging.Logger().Debug("session_request_failed",
			zap.String("component", "session"),
			zap.String("session_id", s.id),
			zap.String("method", method),
			zap.String("url", config.RedactURL(target)),
			zap.Error(err),
		)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("session_request",
		zap.String("component", "session"),
		zap.String("session_id", s.id),
		zap.String("method", method),
		zap.String("url", config.RedactURL(target)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &HTTPResponse{
		method: method,
		url:    target,
		code:   resp.StatusCode,
		header: resp.Header,
		body:   b,
	}, nil
}

// HTTPResponse is a fully read response.
type HTTPResponse struct {
	method string
	url    string
	code   int
	header http.Header
	body   []byte
}

func (r *HTTPResponse) StatusCode() int       { return r.code }
func (r *HTTPResponse) Header() http.Header   { return r.header }
func (r *HTTPResponse) RaiseForStatus() error { return transport.CheckStatus(r.method, r.url, r.code) }

// JSON decodes the body as a JSON object.
func (r *HTTPResponse) JSON() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(r.body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AsyncSession performs requests on their own goroutine so callers can wait
// on a context instead of blocking.
type AsyncSession struct {
	*Session
}

func (s *AsyncSession) close() { s.Session.close() }

// Request starts the request and returns a future for its response.
func (s *AsyncSession) Request(ctx context.Context, method, target string, opts transport.AsyncOptions) transport.Awaitable {
	return transport.Go(ctx, func(ctx context.Context) (transport.AsyncResponse, error) {
		resp, err := s.do(ctx, method, target, opts.Timeout.Total, opts.Data, opts.Header)
		if err != nil {
			return nil, err
		}
		return &AsyncHTTPResponse{resp: resp}, nil
	})
}

// AsyncHTTPResponse is the async view of a fully read response.
type AsyncHTTPResponse struct {
	resp *HTTPResponse
}

func (r *AsyncHTTPResponse) Status() int           { return r.resp.code }
func (r *AsyncHTTPResponse) Header() http.Header   { return r.resp.header }
func (r *AsyncHTTPResponse) RaiseForStatus() error { return r.resp.RaiseForStatus() }

// JSON decodes the body; the body is already buffered so only ctx is awaited.
func (r *AsyncHTTPResponse) JSON(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.resp.JSON()
}
