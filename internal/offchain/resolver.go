package offchain

import (
	"context"
	"net/http"

	"github.com/AIAleph/offchain_harness/internal/transport"
)

// Resolver resolves lookups with blocking requests.
type Resolver struct {
	client *transport.Client
}

func NewResolver(client *transport.Client) *Resolver { return &Resolver{client: client} }

// Resolve tries each gateway URL in order and returns the callback calldata:
// the callback selector followed by abi.encode(bytes response, bytes extraData).
// A 4xx gateway ends the lookup with that response's RaiseForStatus error.
func (r *Resolver) Resolve(ctx context.Context, l Lookup) ([]byte, error) {
	return resolve(ctx, l, func(ctx context.Context, method, url string, data map[string]string) (reply, error) {
		opts := transport.Options{Timeout: transport.DefaultTimeout, Data: data}
		var (
			resp transport.Response
			err  error
		)
		if method == http.MethodGet {
			resp, err = r.client.Get(ctx, url, opts)
		} else {
			resp, err = r.client.Post(ctx, url, opts)
		}
		if err != nil {
			return nil, err
		}
		return syncReply{resp}, nil
	})
}

type syncReply struct{ transport.Response }

func (s syncReply) status() int                                  { return s.StatusCode() }
func (s syncReply) body(context.Context) (map[string]any, error) { return s.JSON() }
func (s syncReply) raiseForStatus() error                        { return s.RaiseForStatus() }

// AsyncResolver resolves lookups with an AsyncClient.
type AsyncResolver struct {
	client *transport.AsyncClient
}

func NewAsyncResolver(client *transport.AsyncClient) *AsyncResolver {
	return &AsyncResolver{client: client}
}

// Resolve behaves like Resolver.Resolve, awaiting each gateway in turn.
func (r *AsyncResolver) Resolve(ctx context.Context, l Lookup) ([]byte, error) {
	return resolve(ctx, l, func(ctx context.Context, method, url string, data map[string]string) (reply, error) {
		opts := transport.AsyncOptions{Timeout: transport.DefaultClientTimeout(), Data: data}
		var pending transport.Awaitable
		if method == http.MethodGet {
			pending = r.client.Get(ctx, url, opts)
		} else {
			pending = r.client.Post(ctx, url, opts)
		}
		resp, err := pending.Await(ctx)
		if err != nil {
			return nil, err
		}
		return asyncReply{resp}, nil
	})
}

type asyncReply struct{ transport.AsyncResponse }

func (a asyncReply) status() int                                      { return a.Status() }
func (a asyncReply) body(ctx context.Context) (map[string]any, error) { return a.JSON(ctx) }
func (a asyncReply) raiseForStatus() error                            { return a.RaiseForStatus() }
