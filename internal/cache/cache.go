// internal/cache/cache.go
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry is one cached response body keyed by URL.
type Entry struct {
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Cache defines the interface for response caching implementations.
//
// The fetch layer consults it before issuing idempotent GETs: enrichment
// can revisit the same detail page when duplicate listings point at one
// video, and the cache turns those repeats into no-ops.
type Cache interface {
	// Get retrieves a cached response by key.
	Get(key string) (*Entry, bool)

	// Set stores a response in cache with the specified TTL.
	Set(key string, entry *Entry, ttl time.Duration) error

	// Delete removes a cached response by key.
	Delete(key string)

	// Clear removes all entries.
	Clear()

	// Close releases any resources held by the cache.
	Close()
}

type cacheItem struct {
	key       string
	entry     *Entry
	size      int64
	expiresAt time.Time
}

// MemoryCache is an in-memory LRU cache bounded by total body bytes.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	size     int64
	maxSize  int64
	hitCount int64
}

// NewMemoryCache creates a MemoryCache bounded to maxSizeBytes
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 50 * 1024 * 1024
	}
	return &MemoryCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSizeBytes,
	}
}

// Get retrieves a cached response, honoring expiry
func (c *MemoryCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	item := elem.Value.(*cacheItem)
	if time.Now().After(item.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hitCount++
	return item.entry, true
}

// Set stores a response, evicting least-recently-used entries as needed
func (c *MemoryCache) Set(key string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return nil
	}
	size := int64(len(entry.HTML))
	if size > c.maxSize {
		// Too large to ever fit; skip silently
		log.Debug().Str("key", key).Int64("size", size).Msg("Entry exceeds cache capacity, skipping")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}

	item := &cacheItem{
		key:       key,
		entry:     entry,
		size:      size,
		expiresAt: time.Now().Add(ttl),
	}
	elem := c.order.PushFront(item)
	c.items[key] = elem
	c.size += size

	for c.size > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	return nil
}

// Delete removes a cached response by key
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}
}

// Clear removes all entries
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.size = 0
}

// Close releases resources (no-op for the in-memory cache)
func (c *MemoryCache) Close() {
	c.Clear()
}

// Hits returns the number of cache hits since creation
func (c *MemoryCache) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount
}

// removeLocked must be called with c.mu held
func (c *MemoryCache) removeLocked(elem *list.Element) {
	item := elem.Value.(*cacheItem)
	c.order.Remove(elem)
	delete(c.items, item.key)
	c.size -= item.size
}
