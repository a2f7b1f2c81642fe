package eth

import "context"

// RLProvider wraps a Provider with a Limiter.
type RLProvider struct {
	p Provider
	l Limiter
}

func WrapWithLimiter(p Provider, l Limiter) Provider { return RLProvider{p: p, l: l} }

func (r RLProvider) BlockNumber(ctx context.Context) (uint64, error) {
	if err := r.l.Wait(ctx); err != nil {
		return 0, err
	}
	return r.p.BlockNumber(ctx)
}

func (r RLProvider) BlockByNumber(ctx context.Context, n uint64) (Block, error) {
	if err := r.l.Wait(ctx); err != nil {
		return Block{}, err
	}
	return r.p.BlockByNumber(ctx, n)
}

func (r RLProvider) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	if err := r.l.Wait(ctx); err != nil {
		return nil, err
	}
	return r.p.GetLogs(ctx, filter)
}
