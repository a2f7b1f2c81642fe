package session

import (
	"container/list"
	"time"
)

type closer interface {
	close()
}

type lruEntry[V closer] struct {
	key       string
	value     V
	expiresAt time.Time
}

// lru is a size- and idle-bounded cache keyed by URL. Evicted values are
// closed. Callers hold the owning Cache's mutex.
type lru[V closer] struct {
	max     int
	ttl     time.Duration
	entries map[string]*list.Element
	ordered *list.List
	onEvict func(key string, v V)
}

func newLRU[V closer](max int, ttl time.Duration, onEvict func(string, V)) *lru[V] {
	return &lru[V]{
		max:     max,
		ttl:     ttl,
		entries: make(map[string]*list.Element, max),
		ordered: list.New(),
		onEvict: onEvict,
	}
}

func (c *lru[V]) get(key string, now time.Time) (V, bool) {
	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*lruEntry[V])
	if !now.Before(e.expiresAt) {
		c.removeElement(el)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.ordered.MoveToFront(el)
	return e.value, true
}

func (c *lru[V]) add(key string, value V, now time.Time) {
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	el := c.ordered.PushFront(&lruEntry[V]{key: key, value: value, expiresAt: now.Add(c.ttl)})
	c.entries[key] = el
	c.evict(now)
}

func (c *lru[V]) evict(now time.Time) {
	for el := c.ordered.Back(); el != nil; {
		prev := el.Prev()
		if now.Before(el.Value.(*lruEntry[V]).expiresAt) {
			break
		}
		c.removeElement(el)
		el = prev
	}
	for c.ordered.Len() > c.max {
		c.removeElement(c.ordered.Back())
	}
}

func (c *lru[V]) removeElement(el *list.Element) {
	e := el.Value.(*lruEntry[V])
	delete(c.entries, e.key)
	c.ordered.Remove(el)
	e.value.close()
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

func (c *lru[V]) clear() {
	for el := c.ordered.Back(); el != nil; el = c.ordered.Back() {
		c.removeElement(el)
	}
}

func (c *lru[V]) len() int { return c.ordered.Len() }
