// Package tilecache generalizes the teacher's inline ccache+singleflight
// tile cache (geotiff.go's tileCache/inflightData/inflightPrefetch fields)
// into a standalone, reusable component that caches arbitrary processed
// strip/tile payloads, not just GeDTM30's int32/float32 elevation tiles.
package tilecache

import (
	"strconv"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

// Cache caches the processed (decompressed, predictor-undone, typed)
// result of decoding a single strip or tile, deduplicating concurrent
// requests for the same unit the way the teacher's inflightData group does.
type Cache struct {
	store       *ccache.Cache[any]
	inflight    singleflight.Group
	prefetching singleflight.Group
	ttl         time.Duration
}

// New builds a Cache sized for maxItems entries, pruning itemsToPrune of
// them once the cache is full, mirroring the teacher's Open(r, cacheSize,
// itemsToPrune) configuration knobs.
func New(maxItems int64, itemsToPrune uint32, ttl time.Duration) *Cache {
	return &Cache{
		store: ccache.New(ccache.Configure[any]().MaxSize(maxItems).ItemsToPrune(itemsToPrune)),
		ttl:   ttl,
	}
}

// GetOrLoad returns the cached value for unit, computing and storing it via
// load on a miss. Concurrent GetOrLoad calls for the same unit share one
// in-flight load. The returned bool reports whether the value came from the
// cache (true) or a fresh load (false), so callers can instrument hit/miss
// rates without duplicating the lookup.
func (c *Cache) GetOrLoad(unit int, load func() (any, error)) (any, bool, error) {
	key := strconv.Itoa(unit)
	if item := c.store.Get(key); item != nil && !item.Expired() {
		return item.Value(), true, nil
	}
	v, err, _ := c.inflight.Do(key, func() (any, error) {
		val, err := load()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, val, c.ttl)
		return val, nil
	})
	return v, false, err
}

// Prefetch triggers load for unit in the background at most once per
// forget window, matching the teacher's prefetchKey/AfterFunc(Forget)
// pattern in loc().
func (c *Cache) Prefetch(unit int, forgetAfter time.Duration, load func() (any, error)) {
	key := "prefetch-" + strconv.Itoa(unit)
	go c.prefetching.Do(key, func() (any, error) {
		_, _, _ = c.GetOrLoad(unit, load)
		time.AfterFunc(forgetAfter, func() {
			c.prefetching.Forget(key)
		})
		return nil, nil
	})
}
