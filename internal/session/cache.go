// Package session caches one HTTP session per URL so repeated calls to the
// same endpoint reuse a connection pool.
package session

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/transport"
)

const (
	defaultCacheSize = 100
	defaultIdleTTL   = 5 * time.Minute
)

// Cache is a URL-keyed session cache. Sync and async sessions live in
// separate namespaces.
type Cache struct {
	mu        sync.Mutex
	syncs     *lru[*Session]
	asyncs    *lru[*AsyncSession]
	group     singleflight.Group
	newClient func() *http.Client
	now       func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClientFactory overrides how each session's HTTP client is built.
func WithClientFactory(f func() *http.Client) Option {
	return func(c *Cache) { c.newClient = f }
}

// WithClock overrides the time source used for idle expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a Cache sized and tuned from cfg.
func New(cfg config.Config, opts ...Option) *Cache {
	size := cfg.SessionCacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.SessionIdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	c := &Cache{
		newClient: func() *http.Client { return &http.Client{Transport: newTransport(cfg)} },
		now:       time.Now,
	}
	c.syncs = newLRU(size, ttl, func(key string, s *Session) { logEvict(key, s.id) })
	c.asyncs = newLRU(size, ttl, func(key string, s *AsyncSession) { logEvict(key, s.id) })
	for _, o := range opts {
		o(c)
	}
	return c
}

func newTransport(cfg config.Config) *http.Transport {
	perHost := cfg.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = 32
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        perHost * 2,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func logEvict(url, id string) {
	logging.Logger().Debug("session_evicted",
		zap.String("component", "session"),
		zap.String("url", config.RedactURL(url)),
		zap.String("session_id", id),
	)
}

func logCreate(url, id string, async bool) {
	logging.Logger().Debug("session_created",
		zap.String("component", "session"),
		zap.String("url", config.RedactURL(url)),
		zap.String("session_id", id),
		zap.Bool("async", async),
	)
}

// Session returns the sync session cached for url, creating it on a miss.
func (c *Cache) Session(url string) transport.Requester {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if s, ok := c.syncs.get(url, now); ok {
		return s
	}
	s := newSession(url, c.newClient())
	c.syncs.add(url, s, now)
	logCreate(url, s.id, false)
	return s
}

// AsyncSession returns the async session cached for url. Concurrent misses
// for the same url share a single creation.
func (c *Cache) AsyncSession(ctx context.Context, url string) (transport.AsyncRequester, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, _, _ := c.group.Do(url, func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		now := c.now()
		if s, ok := c.asyncs.get(url, now); ok {
			return s, nil
		}
		s := &AsyncSession{Session: newSession(url, c.newClient())}
		c.asyncs.add(url, s, now)
		logCreate(url, s.id, true)
		return s, nil
	})
	return v.(*AsyncSession), nil
}

// Len reports the number of cached sync and async sessions.
func (c *Cache) Len() (syncN, asyncN int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncs.len(), c.asyncs.len()
}

// Close evicts every session and releases idle connections.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncs.clear()
	c.asyncs.clear()
}

var (
	_ transport.SessionFactory      = (*Cache)(nil)
	_ transport.AsyncSessionFactory = (*Cache)(nil)
)
