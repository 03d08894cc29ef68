package cache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/chunkstore/internal/chunk"
	"github.com/hupe1980/chunkstore/resource"
	"golang.org/x/sync/singleflight"
)

// LoadFunc loads a chunk on a cache miss.
type LoadFunc func(ctx context.Context) (*chunk.View, error)

// EvictFunc is called for every chunk dropped to make room.
type EvictFunc func(key int, size int64)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	Bytes     int64
	Budget    int64
	// Reserved is the memory held on the shared resource controller by
	// every cache and writer using it.
	Reserved int64
}

// ChunkCache implements an LRU cache of parsed chunks keyed by chunk index.
type ChunkCache struct {
	mu        sync.Mutex
	budget    int64
	size      int64
	items     map[int]*list.Element
	evictList *list.List
	rc        *resource.Controller
	onEvict   EvictFunc

	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	key  int
	view *chunk.View
}

func (e *entry) size() int64 { return int64(e.view.Size()) }

// New creates a new cache with the given budget in bytes.
// If rc is provided, it will be used to track memory usage.
func New(budget int64, rc *resource.Controller) *ChunkCache {
	return &ChunkCache{
		budget:    budget,
		items:     make(map[int]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// OnEvict registers fn to be called after evictions. It is not called by
// Purge.
func (c *ChunkCache) OnEvict(fn EvictFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns a cached chunk.
func (c *ChunkCache) Get(key int) (*chunk.View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).view, true
	}
	c.misses.Add(1)
	return nil, false
}

// GetOrLoad returns the cached chunk for key, loading and caching it on a
// miss. Concurrent misses on one key share a single load. hit reports whether
// the chunk was already cached.
//
// The shared load is not canceled with ctx: a caller that gives up returns
// ctx.Err() while the load continues for the others.
func (c *ChunkCache) GetOrLoad(ctx context.Context, key int, load LoadFunc) (view *chunk.View, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.Itoa(key), func() (any, error) {
		// A flight that finished just before ours may have filled the entry.
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*chunk.View), false, nil
	}
}

func (c *ChunkCache) peek(key int) (*chunk.View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		return ent.Value.(*entry).view, true
	}
	return nil, false
}

// Add caches a chunk. It reports whether the chunk was admitted.
func (c *ChunkCache) Add(key int, v *chunk.View) bool {
	c.mu.Lock()
	evicted, ok := c.addLocked(key, v)
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e.key, e.size())
		}
	}
	return ok
}

func (c *ChunkCache) addLocked(key int, v *chunk.View) ([]*entry, bool) {
	if ent, ok := c.items[key]; ok {
		// Chunks are immutable, so an existing entry is already current.
		c.evictList.MoveToFront(ent)
		return nil, true
	}

	itemSize := int64(v.Size())

	// If item is larger than the budget, don't cache
	if c.budget > 0 && itemSize > c.budget {
		return nil, false
	}

	var evicted []*entry
	// Evict to make space in local budget first.
	// This releases memory to the controller before we try to acquire it back.
	for c.budget > 0 && c.size+itemSize > c.budget {
		e := c.evictOldest()
		if e == nil {
			break
		}
		evicted = append(evicted, e)
	}

	// The shared limit may be held by other caches; our own entries are the
	// only ones we can give back.
	for !c.rc.TryAcquireMemory(itemSize) {
		e := c.evictOldest()
		if e == nil {
			return evicted, false
		}
		evicted = append(evicted, e)
	}

	element := c.evictList.PushFront(&entry{key: key, view: v})
	c.items[key] = element
	c.size += itemSize
	return evicted, true
}

func (c *ChunkCache) evictOldest() *entry {
	element := c.evictList.Back()
	if element == nil {
		return nil
	}
	e := c.removeElement(element)
	c.evictions.Add(1)
	return e
}

func (c *ChunkCache) removeElement(e *list.Element) *entry {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	itemSize := kv.size()
	c.size -= itemSize
	c.rc.ReleaseMemory(itemSize)
	return kv
}

// Remove drops key from the cache.
func (c *ChunkCache) Remove(key int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Purge drops every entry and returns all reserved memory.
func (c *ChunkCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

// Contains reports whether key is cached without touching recency or counters.
func (c *ChunkCache) Contains(key int) bool {
	_, ok := c.peek(key)
	return ok
}

// Size returns the current size of the cache in bytes.
func (c *ChunkCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cache statistics.
func (c *ChunkCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   len(c.items),
		Bytes:     c.size,
		Budget:    c.budget,
		Reserved:  c.rc.MemoryUsage(),
	}
}
