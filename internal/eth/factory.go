package eth

import (
	"net/http"
	"strings"

	"github.com/AIAleph/offchain_harness/internal/config"
)

// NewProvider constructs a JSON-RPC Provider for cfg.ProviderURL and wraps it
// with a rate limiter. Validation stays in NewHTTPProvider.
func NewProvider(cfg config.Config) (Provider, error) {
	base, err := NewHTTPProvider(strings.TrimSpace(cfg.ProviderURL), &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		return nil, err
	}
	if hp, ok := base.(*httpProvider); ok {
		if cfg.HTTPRetries > 0 {
			hp.maxRetries = cfg.HTTPRetries
		}
		if cfg.HTTPBackoffBase > 0 {
			hp.backoffBase = cfg.HTTPBackoffBase
		}
	}
	return WrapWithLimiter(base, NewLimiter(cfg.RateLimit)), nil
}
