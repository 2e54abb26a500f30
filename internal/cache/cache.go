// file: internal/cache/cache.go
// version: 1.2.0
// guid: ceba1437-f57b-491f-a600-f3ab8071bd03

package cache

import (
	"container/heap"
	"sync"
	"time"
)

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
	index     int
}

// expiryHeap orders entries by expiry, soonest first
type expiryHeap[T any] []*entry[T]

func (h expiryHeap[T]) Len() int           { return len(h) }
func (h expiryHeap[T]) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap[T]) Push(x any) {
	e := x.(*entry[T])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Cache is a simple generic TTL cache safe for concurrent use.
// When maxEntries is positive, expired entries are swept and then the entry
// closest to expiry is evicted once the limit is reached. Eviction costs
// O(log n) per removed entry.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]*entry[T]
	byExpiry   expiryHeap[T]
	defaultTTL time.Duration
	maxEntries int
}

// New creates an unbounded cache with the given default TTL.
func New[T any](defaultTTL time.Duration) *Cache[T] {
	return NewBounded[T](defaultTTL, 0)
}

// NewBounded creates a cache holding at most maxEntries values.
func NewBounded[T any](defaultTTL time.Duration, maxEntries int) *Cache[T] {
	return &Cache[T]{
		items:      make(map[string]*entry[T]),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
	}
}

// Get retrieves a value if it exists and hasn't expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a specific TTL.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt := time.Now().Add(ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		heap.Fix(&c.byExpiry, e.index)
		return
	}
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	e := &entry[T]{key: key, value: value, expiresAt: expiresAt}
	heap.Push(&c.byExpiry, e)
	c.items[key] = e
}

// GetOrLoad returns the cached value for key or stores the result of load.
// Errors from load are returned and nothing is cached.
func (c *Cache[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Invalidate removes a single key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		heap.Remove(&c.byExpiry, e.index)
		delete(c.items, key)
	}
}

// InvalidateAll removes all entries.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[string]*entry[T])
	c.byExpiry = nil
	c.mu.Unlock()
}

func (c *Cache[T]) evictLocked() {
	now := time.Now()
	for len(c.byExpiry) > 0 && now.After(c.byExpiry[0].expiresAt) {
		e := heap.Pop(&c.byExpiry).(*entry[T])
		delete(c.items, e.key)
	}
	if len(c.items) < c.maxEntries || len(c.byExpiry) == 0 {
		return
	}
	e := heap.Pop(&c.byExpiry).(*entry[T])
	delete(c.items, e.key)
}
