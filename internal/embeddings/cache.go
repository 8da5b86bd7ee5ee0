package embeddings

import (
	"container/list"
	"context"
	"sync"
)

// Cache wraps a Provider with an LRU of recent text -> vector results.
//
// The analyzer embeds the same reference phrases on every lexicon reload and
// the bridge can re-analyze the same text during backfill, so a small cache
// saves provider round trips.
type Cache struct {
	Provider

	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element

	hits   uint64
	misses uint64
}

type cacheItem struct {
	key   string
	value []float32
}

// NewCache wraps p. A capacity <= 0 returns p unchanged.
func NewCache(p Provider, capacity int) Provider {
	if capacity <= 0 || p == nil {
		return p
	}
	return &Cache{
		Provider: p,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Embed returns the cached vector for text or asks the wrapped provider.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.get(text); ok {
		return v, nil
	}
	v, err := c.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(text, v)
	return v, nil
}

// EmbedBatch only sends the texts that are not cached.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fresh, err := c.Provider.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, ErrEmptyEmbedding
	}
	for j, idx := range missingIdx {
		out[idx] = fresh[j]
		c.put(missing[j], fresh[j])
	}
	return out, nil
}

// Stats returns cache hits and misses since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).value, true
}

func (c *Cache) put(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheItem{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).key)
	}
}
