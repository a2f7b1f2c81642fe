package transporttest

import (
	"context"
	"errors"

	"github.com/AIAleph/offchain_harness/internal/transport"
)

// ErrRaiseForStatusCalled is returned by every synthetic RaiseForStatus.
var ErrRaiseForStatusCalled = errors.New("called RaiseForStatus()")

// SyntheticResponse stands in for a real synchronous response.
type SyntheticResponse struct {
	code    int
	field   string
	payload string
}

func (r *SyntheticResponse) StatusCode() int { return r.code }

// JSON returns {field: payload}.
func (r *SyntheticResponse) JSON() (map[string]any, error) {
	return map[string]any{r.field: r.payload}, nil
}

// RaiseForStatus always fails.
func (r *SyntheticResponse) RaiseForStatus() error { return ErrRaiseForStatusCalled }

// AsyncSyntheticResponse stands in for a real asynchronous response. It is
// its own Awaitable.
type AsyncSyntheticResponse struct {
	status  int
	field   string
	payload string
}

func (r *AsyncSyntheticResponse) Status() int { return r.status }

// JSON resolves immediately with {field: payload} unless ctx is done.
func (r *AsyncSyntheticResponse) JSON(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{r.field: r.payload}, nil
}

// RaiseForStatus always fails.
func (r *AsyncSyntheticResponse) RaiseForStatus() error { return ErrRaiseForStatusCalled }

// Await resolves to the response itself.
func (r *AsyncSyntheticResponse) Await(ctx context.Context) (transport.AsyncResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	_ transport.Response      = (*SyntheticResponse)(nil)
	_ transport.AsyncResponse = (*AsyncSyntheticResponse)(nil)
	_ transport.Awaitable     = (*AsyncSyntheticResponse)(nil)
)
