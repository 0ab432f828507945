package cache

// HashFunc produces the 32-bit hash used to pick a shard for key.
type HashFunc[K comparable] func(key K) uint32

// Cache is a generic sharded LRU: NumShards independently-locked shards,
// selected by the top shardBits bits of Hash(key), each enforcing its
// own capacity. Shared by the table cache and the block cache, which
// differ only in K, V, and the hash/eviction callback supplied.
type Cache[K comparable, V any] struct {
	shards [NumShards]*shard[K, V]
	hash   HashFunc[K]
}

// New builds a Cache with the given total capacity split evenly across
// NumShards shards (spec.md §4.6: "Total node count per shard <=
// per-shard capacity after inserts that can evict from LRU"). onEvict,
// if non-nil, is invoked synchronously whenever an entry is destroyed:
// when capacity pressure evicts it from the LRU list, when Erase removes
// an unpinned entry, or when the last Handle on an erased entry is
// released.
func New[K comparable, V any](capacity int, hash HashFunc[K], onEvict func(K, V)) *Cache[K, V] {
	perShard := capacity / NumShards
	if perShard < 1 {
		perShard = 1
	}
	c := &Cache[K, V]{hash: hash}
	for i := range c.shards {
		c.shards[i] = newShard[K, V](perShard, onEvict)
	}
	return c
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	h := c.hash(key)
	idx := h >> (32 - shardBits)
	return c.shards[idx]
}

// Get looks up key. On a hit it returns a pinned Handle that must be
// released by the caller; on a miss, ok is false and the Handle is the
// zero value.
func (c *Cache[K, V]) Get(key K) (Handle[K, V], bool) {
	return c.shardFor(key).get(key)
}

// Put inserts or overwrites key's value and returns a pinned Handle on
// it. If the shard is now over capacity, the least-recently-used
// unpinned entries are evicted until it is back at or under capacity (or
// until nothing more can be evicted because everything is pinned).
func (c *Cache[K, V]) Put(key K, value V) Handle[K, V] {
	return c.shardFor(key).put(key, value)
}

// Erase unconditionally removes key from the cache. If it is currently
// pinned, the removal still takes effect immediately for future Get
// calls; the underlying value is only destroyed (onEvict invoked) once
// the last outstanding Handle is released.
func (c *Cache[K, V]) Erase(key K) {
	c.shardFor(key).erase(key)
}

// ShardLen reports the number of entries in the shard that would hold
// key; exposed for tests asserting per-shard eviction counts (spec.md
// §8 property 11, scenario S4).
func (c *Cache[K, V]) ShardLen(key K) int {
	return c.shardFor(key).len()
}
