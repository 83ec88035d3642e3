// Package cache provides a bounded, sharded LRU cache with get-or-compute
// semantics.
//
// Cache is the storage behind the glyph cache: keys are spread over up to
// MaxShards independently locked shards, each with its own LRU list, and the
// total number of entries never exceeds the configured maximum.
//
//	c := cache.New[string, int](1024, cache.StringHasher)
//	v, err := c.GetOrCompute(ctx, "key", func() (int, error) {
//	    return expensive(), nil
//	})
//
// # Get-or-compute
//
// GetOrCompute keeps a registry of in-flight computations keyed by cache key.
// The first caller for a missing key runs the computation outside of any
// lock; concurrent callers for the same key wait for that result instead of
// computing it again. Failed computations are reported to every waiter and
// are not stored, so a failure never poisons the cache.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
