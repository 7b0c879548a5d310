// Package cache provides a small TTL cache used to soften catalog lookups.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type TTLCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	ttl  time.Duration
}

func NewTTL[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{data: make(map[K]entry[V]), ttl: ttl}
}

func (c *TTLCache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[k]
	c.mu.RUnlock()
	var zero V
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.data, k)
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	c.data[k] = entry[V]{value: v, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.data, k)
	c.mu.Unlock()
}

// Len evicts expired entries and reports the live count.
func (c *TTLCache[K, V]) Len() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	return len(c.data)
}

func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	c.data = make(map[K]entry[V])
	c.mu.Unlock()
}
