// Package cache provides an in-memory TTL cache used as the payment session
// registry. Entries slide: every successful Get extends the deadline.
package cache

import (
	"sync"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with sliding TTL.
type InMemory[T any] struct {
	mu      sync.Mutex
	items   map[string]entry[T]
	ttl     time.Duration
	onEvict func(key string, value T)
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ port.Cache[any] = (*InMemory[any])(nil)

// Option configures an InMemory cache.
type Option[T any] func(*InMemory[T])

// WithEvictHook registers fn to run for every entry that expires or is
// deleted. fn runs without the cache lock held.
func WithEvictHook[T any](fn func(key string, value T)) Option[T] {
	return func(c *InMemory[T]) { c.onEvict = fn }
}

// WithClock overrides the time source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *InMemory[T]) { c.now = now }
}

// New creates a new in-memory cache with the given TTL and starts the
// background sweeper. Call Close to stop it.
func New[T any](ttl time.Duration, opts ...Option[T]) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Get retrieves a value and refreshes its deadline. Returns false if not
// found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	e, ok := c.items[key]
	now := c.now()
	if !ok || now.After(e.expiresAt) {
		if ok {
			delete(c.items, key)
		}
		c.mu.Unlock()
		if ok {
			c.evicted(key, e.value)
		}
		var zero T
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.items[key] = e
	c.mu.Unlock()
	return e.value, true
}

// Set stores a value with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a value and runs the evict hook for it.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	e, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if ok {
		c.evicted(key, e.value)
	}
}

// Len returns the number of entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the sweeper and evicts every entry.
func (c *InMemory[T]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)

		c.mu.Lock()
		items := c.items
		c.items = make(map[string]entry[T])
		c.mu.Unlock()

		for k, e := range items {
			c.evicted(k, e.value)
		}
	})
}

func (c *InMemory[T]) evicted(key string, value T) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// sweep removes expired entries.
func (c *InMemory[T]) sweep() {
	c.mu.Lock()
	now := c.now()
	var expired map[string]T
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			if expired == nil {
				expired = make(map[string]T)
			}
			expired[k] = v.value
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	for k, v := range expired {
		c.evicted(k, v)
	}
}

// cleanup periodically sweeps until Close.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}
