package transporttest

import (
	"context"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/transport"
)

// AsyncInterceptor is the asynchronous counterpart of Interceptor. Contract
// checks run synchronously in Dispatch; pass-through calls run on their own
// goroutine so the caller only waits as long as its context allows.
type AsyncInterceptor struct {
	t        require.TestingT
	rule     Rule
	sessions transport.AsyncSessionFactory
}

// NewAsyncInterceptor binds rule to t. sessions serves the pass-through calls.
func NewAsyncInterceptor(t require.TestingT, rule Rule, sessions transport.AsyncSessionFactory) *AsyncInterceptor {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	m, err := transport.NormalizeMethod(rule.Method)
	require.NoError(t, err)
	rule.Method = m
	return &AsyncInterceptor{t: t, rule: rule, sessions: sessions}
}

// Rule returns the interceptor's rule.
func (i *AsyncInterceptor) Rule() Rule { return i.rule }

// Dispatch implements transport.AsyncDispatcher.
func (i *AsyncInterceptor) Dispatch(ctx context.Context, method, url string, opts transport.AsyncOptions) transport.Awaitable {
	if err := expectTimeout(i.t, transport.DefaultClientTimeout(), opts.Timeout); err != nil {
		return transport.Failed(err)
	}
	if i.rule.Matches(url) {
		if i.rule.isPost() {
			if err := expectBody(i.t, i.rule.ExpectedBody(), opts.Data); err != nil {
				return transport.Failed(err)
			}
		}
		logging.Logger().Debug("request_intercepted",
			zap.String("component", "transporttest"),
			zap.String("method", i.rule.Method),
			zap.String("url", config.RedactURL(url)),
			zap.Int("status", i.rule.StatusCode),
			zap.Bool("async", true),
		)
		return i.rule.AsyncResponse()
	}
	logging.Logger().Debug("request_passthrough",
		zap.String("component", "transporttest"),
		zap.String("method", i.rule.Method),
		zap.String("url", config.RedactURL(url)),
		zap.Bool("async", true),
	)
	method = i.rule.Method
	return transport.Go(ctx, func(ctx context.Context) (transport.AsyncResponse, error) {
		s, err := i.sessions.AsyncSession(ctx, url)
		if err != nil {
			return nil, err
		}
		return s.Request(ctx, method, url, opts).Await(ctx)
	})
}

// InstallAsync puts an async interceptor on client's rule.Method entry point.
func InstallAsync(t require.TestingT, client *transport.AsyncClient, rule Rule, sessions transport.AsyncSessionFactory) *AsyncInterceptor {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	i := NewAsyncInterceptor(t, rule, sessions)
	require.NoError(t, client.Install(i.rule.Method, i))
	return i
}

// NewAsyncClient returns an async client over sessions with rule's entry
// point intercepted.
func NewAsyncClient(t require.TestingT, rule Rule, sessions transport.AsyncSessionFactory) *transport.AsyncClient {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	c, err := transport.NewAsyncClient(sessions)
	require.NoError(t, err)
	InstallAsync(t, c, rule, sessions)
	return c
}

var _ transport.AsyncDispatcher = (*AsyncInterceptor)(nil)
