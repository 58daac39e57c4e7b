package textsource

import (
	"container/list"
	"sync"
)

// DefaultCacheBytes is the default decoded-text budget of a ChunkCache.
const DefaultCacheBytes = 4 << 20

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Entries   int
	Bytes     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// ChunkCache is a byte-budgeted LRU of decoded chunks keyed by chunk index.
// Decoding happens outside the lock; the most recently inserted entry is
// always kept even when it alone exceeds the budget.
type ChunkCache struct {
	mu     sync.Mutex
	budget int64
	used   int64
	order  *list.List
	items  map[int]*list.Element
	decode func(index int) (*DecodedChunk, error)

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	index int
	chunk *DecodedChunk
}

// NewChunkCache creates a cache that calls decode on a miss.
func NewChunkCache(budget int64, decode func(index int) (*DecodedChunk, error)) *ChunkCache {
	if budget <= 0 {
		budget = DefaultCacheBytes
	}
	return &ChunkCache{
		budget: budget,
		order:  list.New(),
		items:  make(map[int]*list.Element),
		decode: decode,
	}
}

// Get returns the decoded chunk, decoding and inserting it on a miss.
// Decode errors are returned and not cached.
func (c *ChunkCache) Get(index int) (*DecodedChunk, error) {
	c.mu.Lock()
	if el, ok := c.items[index]; ok {
		c.order.MoveToFront(el)
		c.hits++
		chunk := el.Value.(*cacheEntry).chunk
		c.mu.Unlock()
		return chunk, nil
	}
	c.misses++
	c.mu.Unlock()

	chunk, err := c.decode(index)
	if err != nil {
		return nil, err
	}
	c.Put(index, chunk)
	return chunk, nil
}

// Put inserts or refreshes an entry and evicts least-recently-used entries
// until the budget holds.
func (c *ChunkCache) Put(index int, chunk *DecodedChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[index]; ok {
		entry := el.Value.(*cacheEntry)
		c.used += chunk.Size() - entry.chunk.Size()
		entry.chunk = chunk
		c.order.MoveToFront(el)
	} else {
		c.items[index] = c.order.PushFront(&cacheEntry{index: index, chunk: chunk})
		c.used += chunk.Size()
	}

	for c.used > c.budget && c.order.Len() > 1 {
		oldest := c.order.Back()
		entry := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.items, entry.index)
		c.used -= entry.chunk.Size()
		c.evictions++
	}
}

// Contains reports whether index is cached without touching recency.
func (c *ChunkCache) Contains(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[index]
	return ok
}

// Purge drops every entry.
func (c *ChunkCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[int]*list.Element)
	c.used = 0
}

// Stats returns the current counters.
func (c *ChunkCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.order.Len(),
		Bytes:     c.used,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
