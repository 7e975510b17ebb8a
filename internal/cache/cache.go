// Package cache provides the read-through snapshot cache between the
// conversation core and the record store. Reads within the TTL window
// are served from memory; the first read after expiry or invalidation
// refetches, with concurrent refetches collapsed into one store call.
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"membuddy/internal/recordstore"
)

// DefaultTTL bounds how stale a served snapshot can be.
const DefaultTTL = 300 * time.Second

// DatasetKey is the cache key for the full-dataset snapshot.
const DatasetKey = "dataset"

// Fetcher loads a fresh snapshot from the backing store.
type Fetcher func(ctx context.Context, key string) (*recordstore.Snapshot, error)

// ReadThrough caches snapshots by key. Cached entries are shared
// pointers; callers must not mutate them.
type ReadThrough struct {
	fetch   Fetcher
	entries *gocache.Cache
	group   singleflight.Group
	ttl     time.Duration
}

// New creates a cache around fetch. A non-positive ttl falls back to
// DefaultTTL.
func New(fetch Fetcher, ttl time.Duration) *ReadThrough {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReadThrough{
		fetch:   fetch,
		entries: gocache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

// ForStore builds a cache whose fetcher is the store's Snapshot read.
func ForStore(store recordstore.Store, ttl time.Duration) *ReadThrough {
	return New(func(ctx context.Context, _ string) (*recordstore.Snapshot, error) {
		return store.Snapshot(ctx)
	}, ttl)
}

// Get returns the cached snapshot for key, fetching on miss. Two calls
// within the TTL return the same snapshot; fetch errors are returned
// without populating the cache.
func (c *ReadThrough) Get(ctx context.Context, key string) (*recordstore.Snapshot, error) {
	if cached, ok := c.entries.Get(key); ok {
		return cached.(*recordstore.Snapshot), nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the entry between the miss and the flight start.
		if cached, ok := c.entries.Get(key); ok {
			return cached, nil
		}
		snap, err := c.fetch(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetching snapshot %q: %w", key, err)
		}
		c.entries.Set(key, snap, c.ttl)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*recordstore.Snapshot), nil
}

// Invalidate drops the entry so the next Get refetches. Callers invoke
// this after every store write, whether or not the write succeeded.
func (c *ReadThrough) Invalidate(key string) {
	c.entries.Delete(key)
	c.group.Forget(key)
}

// InvalidateAll drops every cached entry.
func (c *ReadThrough) InvalidateAll() {
	c.entries.Flush()
}
