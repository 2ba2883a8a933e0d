// Package cache holds the resolved metadata graph between requests.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// Key is the name of the single cache slot.
const Key = "MetadataCache"

// LoadFunc computes the metadata graph on a cache miss.
type LoadFunc func(ctx context.Context) (*metadata.Graph, error)

// Invalidator drops cached state.
type Invalidator interface {
	Invalidate()
}

// Stats reports cache usage.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// GraphCache is a single-slot cache for the metadata graph. Concurrent misses
// share one load; a graph loaded across an invalidation is returned to its
// callers but not stored.
type GraphCache struct {
	mu         sync.RWMutex
	graph      *metadata.Graph
	generation uint64
	stats      Stats
	group      singleflight.Group
}

// New returns an empty cache.
func New() *GraphCache {
	return &GraphCache{}
}

// Get returns the cached graph, calling load on a miss. The shared load runs
// without the cancellation of the caller that started it, so one cancelled
// caller does not fail the others; each caller still returns when its own ctx
// is done.
func (c *GraphCache) Get(ctx context.Context, load LoadFunc) (*metadata.Graph, error) {
	c.mu.Lock()
	if c.graph != nil {
		g := c.graph
		c.stats.Hits++
		c.mu.Unlock()
		return g, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(Key, func() (any, error) {
		c.mu.RLock()
		if c.graph != nil {
			g := c.graph
			c.mu.RUnlock()
			return g, nil
		}
		generation := c.generation
		c.mu.RUnlock()

		g, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == generation {
			c.graph = g
		}
		c.mu.Unlock()
		return g, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*metadata.Graph), nil
	}
}

// Peek returns the cached graph without loading.
func (c *GraphCache) Peek() (*metadata.Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph, c.graph != nil
}

// Invalidate drops the cached graph. The next Get recomputes it.
func (c *GraphCache) Invalidate() {
	c.mu.Lock()
	c.graph = nil
	c.generation++
	c.stats.Invalidations++
	c.mu.Unlock()
	c.group.Forget(Key)
}

// Stats returns a snapshot of the usage counters.
func (c *GraphCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
