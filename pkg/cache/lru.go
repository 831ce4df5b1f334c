// Package cache provides a size-bounded LRU cache.
package cache

import (
	"sync"
	"sync/atomic"
)

// LRU maps keys to values under a total size budget. Sizes are supplied by
// the caller on Put. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu          sync.Mutex
	entries     map[K]*lruEntry[K, V]
	head        *lruEntry[K, V] // Most recently used.
	tail        *lruEntry[K, V] // Least recently used.
	maxSize     int64
	currentSize int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	size  int64
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

// NewLRU creates a cache holding at most maxSize units. A non-positive
// maxSize disables caching.
func NewLRU[K comparable, V any](maxSize int64) *LRU[K, V] {
	return &LRU[K, V]{
		entries: make(map[K]*lruEntry[K, V]),
		maxSize: maxSize,
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, evicting least recently used entries until it
// fits. Values larger than the whole cache are not stored.
func (c *LRU[K, V]) Put(key K, value V, size int64) {
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.currentSize += size - entry.size
		entry.value = value
		entry.size = size
		c.moveToFront(entry)
	} else {
		entry = &lruEntry[K, V]{key: key, value: value, size: size}
		c.entries[key] = entry
		c.currentSize += size
		c.addToFront(entry)
	}

	for c.currentSize > c.maxSize && c.tail != nil {
		c.evict(c.tail)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

func (c *LRU[K, V]) evict(entry *lruEntry[K, V]) {
	c.unlink(entry)
	delete(c.entries, entry.key)
	c.currentSize -= entry.size
	c.evictions.Add(1)
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	if entry == c.head {
		return
	}

	c.unlink(entry)
	c.addToFront(entry)
}

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[K, V]) unlink(entry *lruEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}
