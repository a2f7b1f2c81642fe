package transporttest

import (
	"context"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/transport"
)

// Interceptor answers calls to its rule's target with a SyntheticResponse and
// forwards everything else to a real session.
type Interceptor struct {
	t        require.TestingT
	rule     Rule
	sessions transport.SessionFactory
}

// NewInterceptor binds rule to t. sessions serves the pass-through calls.
func NewInterceptor(t require.TestingT, rule Rule, sessions transport.SessionFactory) *Interceptor {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	m, err := transport.NormalizeMethod(rule.Method)
	require.NoError(t, err)
	rule.Method = m
	return &Interceptor{t: t, rule: rule, sessions: sessions}
}

// Rule returns the interceptor's rule.
func (i *Interceptor) Rule() Rule { return i.rule }

// Dispatch implements transport.Dispatcher.
func (i *Interceptor) Dispatch(ctx context.Context, method, url string, opts transport.Options) (transport.Response, error) {
	if err := expectTimeout(i.t, transport.DefaultTimeout, opts.Timeout); err != nil {
		return nil, err
	}
	if i.rule.Matches(url) {
		if i.rule.isPost() {
			if err := expectBody(i.t, i.rule.ExpectedBody(), opts.Data); err != nil {
				return nil, err
			}
		}
		logging.Logger().Debug("request_intercepted",
			zap.String("component", "transporttest"),
			zap.String("method", i.rule.Method),
			zap.String("url", config.RedactURL(url)),
			zap.Int("status", i.rule.StatusCode),
		)
		return i.rule.Response(), nil
	}
	logging.Logger().Debug("request_passthrough",
		zap.String("component", "transporttest"),
		zap.String("method", i.rule.Method),
		zap.String("url", config.RedactURL(url)),
	)
	return i.sessions.Session(url).Request(ctx, i.rule.Method, url, opts)
}

// Install puts an interceptor for rule on client's rule.Method entry point.
func Install(t require.TestingT, client *transport.Client, rule Rule, sessions transport.SessionFactory) *Interceptor {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	i := NewInterceptor(t, rule, sessions)
	require.NoError(t, client.Install(i.rule.Method, i))
	return i
}

// NewClient returns a client over sessions with rule's entry point intercepted.
func NewClient(t require.TestingT, rule Rule, sessions transport.SessionFactory) *transport.Client {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	c, err := transport.NewClient(sessions)
	require.NoError(t, err)
	Install(t, c, rule, sessions)
	return c
}

var _ transport.Dispatcher = (*Interceptor)(nil)
