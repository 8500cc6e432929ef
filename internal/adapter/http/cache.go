package http

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/observability"
)

// CellCache memoizes encoded cell payloads. Keys include the generation, so
// a new generation never serves stale bytes and old entries age out.
type CellCache struct {
	lru     *lruCache
	metrics *observability.Metrics
}

// NewCellCache creates a cache holding at most maxEntries payloads.
func NewCellCache(maxEntries int, metrics *observability.Metrics) *CellCache {
	return &CellCache{lru: newLRUCache(maxEntries), metrics: metrics}
}

// Get returns the cached payload of a cell, encoding and storing it on a miss.
func (c *CellCache) Get(cw domain.CellWeights, enc domain.Encoding) ([]byte, error) {
	key := fmt.Sprintf("%d:%d:%s", cw.Generation, cw.Cell.Index, enc)
	if payload, ok := c.lru.get(key); ok {
		c.observe("hit")
		return payload, nil
	}
	c.observe("miss")

	payload, err := enc.Marshal(cw)
	if err != nil {
		return nil, fmt.Errorf("encode cell %d: %w", cw.Cell.Index, err)
	}
	c.lru.put(key, payload)
	return payload, nil
}

// Len returns the number of cached payloads.
func (c *CellCache) Len() int { return c.lru.len() }

func (c *CellCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.CellCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU of byte payloads. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key   string
	value []byte
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
