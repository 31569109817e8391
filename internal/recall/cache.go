package recall

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry wraps a cached value with its expiry so capacity-bounded
// hashicorp/golang-lru (which has no native TTL) can also honour the
// spec's 60s default TTL (spec §4.4.5).
type entry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache adds a time-to-live on top of an LRU cache. Grounded on the
// teacher's use of hashicorp/golang-lru/v2 for capacity-bounded caching
// (it arrives transitively via gobreaker's metrics but the teacher does
// not itself add a TTL layer — this wrapper is the piece the spec adds).
type TTLCache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, entry[V]]
	ttl time.Duration
}

// NewTTLCache builds a cache with the given capacity and TTL.
func NewTTLCache[K comparable, V any](capacity int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, entry[V]](capacity)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{lru: l, ttl: ttl}, nil
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expires) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put inserts or refreshes key's value with a new TTL window.
func (c *TTLCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{value: value, expires: time.Now().Add(c.ttl)})
}

// Flush clears every entry. Used on any store write (spec §4.4.5's
// simplest-correct invalidation policy).
func (c *TTLCache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
