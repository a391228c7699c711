// Package memory is an in-process LRU cache with per-entry TTL.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	size      int
}

// call is an in-flight GetOrLoad shared by concurrent callers of one key.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// LRUTTL is a threadsafe LRU cache with per-entry TTL.
type LRUTTL[K comparable, V any] struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[K]*list.Element
	loading    map[K]*call[V]
	maxEntries int
	maxBytes   int
	totalBytes int
	ttl        time.Duration
	now        func() time.Time
}

func NewLRUTTL[K comparable, V any](maxEntries int, maxBytes int, ttl time.Duration) *LRUTTL[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LRUTTL[K, V]{
		ll:         list.New(),
		items:      make(map[K]*list.Element),
		loading:    make(map[K]*call[V]),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (c *LRUTTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *LRUTTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *LRUTTL[K, V]) getLocked(key K) (V, bool) {
	var zero V
	ele, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := ele.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeElement(ele)
		return zero, false
	}
	c.ll.MoveToFront(ele)
	return ent.value, true
}

func (c *LRUTTL[K, V]) Set(key K, value V, sizeBytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, sizeBytes)
}

func (c *LRUTTL[K, V]) setLocked(key K, value V, sizeBytes int) {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	expires := c.now().Add(c.ttl)
	if ele, ok := c.items[key]; ok {
		ent := ele.Value.(*entry[K, V])
		c.totalBytes += sizeBytes - ent.size
		ent.value = value
		ent.size = sizeBytes
		ent.expiresAt = expires
		c.ll.MoveToFront(ele)
		c.evictLocked()
		return
	}
	ele := c.ll.PushFront(&entry[K, V]{key: key, value: value, size: sizeBytes, expiresAt: expires})
	c.items[key] = ele
	c.totalBytes += sizeBytes
	c.evictLocked()
}

// GetOrLoad returns the cached value or calls load once for all concurrent
// callers of key. Errors are returned to every waiter and not cached.
func (c *LRUTTL[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, int, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return v, nil
	}
	if cl, ok := c.loading[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.value, cl.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	cl := &call[V]{done: make(chan struct{})}
	c.loading[key] = cl
	c.mu.Unlock()

	v, size, err := load(ctx)

	c.mu.Lock()
	delete(c.loading, key)
	if err == nil {
		c.setLocked(key, v, size)
	}
	c.mu.Unlock()

	cl.value, cl.err = v, err
	close(cl.done)
	return v, err
}

func (c *LRUTTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.removeElement(ele)
	}
}

func (c *LRUTTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *LRUTTL[K, V]) evictLocked() {
	for c.ll.Len() > 0 {
		if c.ll.Len() <= c.maxEntries && (c.maxBytes <= 0 || c.totalBytes <= c.maxBytes) {
			return
		}
		c.removeElement(c.ll.Back())
	}
}

func (c *LRUTTL[K, V]) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	ent := ele.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.totalBytes -= ent.size
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
}
