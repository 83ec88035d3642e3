package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// MaxShards is the upper bound on the number of shards.
	// Must be a power of 2 for fast modulo via bitwise AND.
	MaxShards = 16

	// MinShardEntries is the smallest number of entries a shard holds.
	// Bounds below 2*MinShardEntries get a single shard.
	MinShardEntries = 64

	// DefaultMaxEntries is used when New is called with a non-positive bound.
	DefaultMaxEntries = 4096
)

// ErrComputePanicked is returned to every caller of GetOrCompute when the
// compute function panicked.
var ErrComputePanicked = errors.New("cache: compute function panicked")

// Hasher computes a hash for a key. Used for shard selection only.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash (identity hash).
func Uint64Hasher(u uint64) uint64 {
	return u
}

// Cache is a thread-safe, sharded LRU cache bounded by a total entry count.
//
// The number of shards adapts to the bound: it is the largest power of two
// not above MaxShards such that every shard holds at least MinShardEntries.
// Each shard holds bound/shards entries, so the cache never holds more than
// the configured maximum. Small caches are a single exact LRU.
type Cache[K comparable, V any] struct {
	shards     []*shard[K, V]
	mask       uint64
	hasher     Hasher[K]
	perShard   int
	maxEntries int

	hits      atomic.Uint64
	misses    atomic.Uint64
	waits     atomic.Uint64
	evictions atomic.Uint64
	computes  atomic.Uint64
}

// shard is a single lock domain. inflight holds computations that have been
// started for keys of this shard but have not completed yet.
type shard[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	lru      list[K, V]
	inflight map[K]*call[V]
}

// call is a pending computation. done is closed once val and err are final.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// New creates a cache holding at most maxEntries values.
// If maxEntries <= 0, DefaultMaxEntries is used.
func New[K comparable, V any](maxEntries int, hasher Hasher[K]) *Cache[K, V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	n := MaxShards
	for n > 1 && n*MinShardEntries > maxEntries {
		n >>= 1
	}

	c := &Cache[K, V]{
		shards:     make([]*shard[K, V], n),
		mask:       uint64(n - 1), //nolint:gosec // n is a small positive power of 2
		hasher:     hasher,
		perShard:   maxEntries / n,
		maxEntries: maxEntries,
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries:  make(map[K]*node[K, V]),
			inflight: make(map[K]*call[V]),
		}
	}
	return c
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&c.mask]
}

// Get retrieves a cached value by key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)

	s.mu.Lock()
	n, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.moveToFront(n)
	v := n.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Set stores a value, evicting the shard's least recently used entries when
// the shard is full.
func (c *Cache[K, V]) Set(key K, value V) {
	s := c.shardFor(key)

	s.mu.Lock()
	c.storeLocked(s, key, value)
	s.mu.Unlock()
}

// GetOrCompute returns the cached value for key, computing it with fn on a
// miss. At most one fn runs per key at any time: callers arriving while a
// computation is in flight wait for its outcome, or until ctx is done.
//
// fn runs without holding any cache lock, so lookups and evictions for other
// keys proceed while it executes. When fn fails, the error is returned to
// the caller and every waiter, and nothing is stored.
func (c *Cache[K, V]) GetOrCompute(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	s := c.shardFor(key)

	s.mu.Lock()
	if n, ok := s.entries[key]; ok {
		s.lru.moveToFront(n)
		v := n.value
		s.mu.Unlock()
		c.hits.Add(1)
		return v, nil
	}

	if pending, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		c.waits.Add(1)
		select {
		case <-pending.done:
			return pending.val, pending.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	cl := &call[V]{done: make(chan struct{})}
	s.inflight[key] = cl
	s.mu.Unlock()

	c.misses.Add(1)
	c.computes.Add(1)
	cl.val, cl.err = safeCompute(fn)

	s.mu.Lock()
	delete(s.inflight, key)
	if cl.err == nil {
		c.storeLocked(s, key, cl.val)
	}
	s.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

// storeLocked inserts or updates key. Caller must hold s.mu.
func (c *Cache[K, V]) storeLocked(s *shard[K, V], key K, value V) {
	if n, ok := s.entries[key]; ok {
		n.value = value
		s.lru.moveToFront(n)
		return
	}

	for s.lru.len >= c.perShard {
		oldest := s.lru.popBack()
		if oldest == nil {
			break
		}
		delete(s.entries, oldest.key)
		c.evictions.Add(1)
	}

	n := &node[K, V]{key: key, value: value}
	s.lru.pushFront(n)
	s.entries[key] = n
}

func safeCompute[V any](fn func() (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v = zero
			err = fmt.Errorf("%w: %v", ErrComputePanicked, r)
		}
	}()
	return fn()
}

// Delete removes an entry. Returns true if the entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.unlink(n)
	delete(s.entries, key)
	return true
}

// Clear removes all stored entries. In-flight computations are unaffected.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]*node[K, V])
		s.lru.clear()
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// MaxEntries returns the configured bound.
func (c *Cache[K, V]) MaxEntries() int {
	return c.maxEntries
}

// Stats contains cache statistics.
type Stats struct {
	Len        int
	MaxEntries int
	Shards     int

	Hits      uint64
	Misses    uint64
	Waits     uint64 // lookups that joined an in-flight computation
	Evictions uint64
	Computes  uint64 // calls of a compute function

	HitRate float64
}

// Stats returns current cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:        c.Len(),
		MaxEntries: c.maxEntries,
		Shards:     len(c.shards),
		Hits:       hits,
		Misses:     misses,
		Waits:      c.waits.Load(),
		Evictions:  c.evictions.Load(),
		Computes:   c.computes.Load(),
		HitRate:    hitRate,
	}
}

// ResetStats resets all statistics counters to zero.
func (c *Cache[K, V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.waits.Store(0)
	c.evictions.Store(0)
	c.computes.Store(0)
}
