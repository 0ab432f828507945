package cache

import "github.com/kvstore/lsmcore/internal/base"

// BlockKey is the block cache's key: LE64(cache_id) ++ LE64(block_offset),
// per spec.md §4.6. cache_id namespaces a table's blocks against every
// other open table sharing the same process-wide block cache.
type BlockKey [16]byte

// MakeBlockKey builds a BlockKey from a table's cache_id (allocated once
// via IDAllocator.NewID at table-open time) and a block's offset within
// that table's file.
func MakeBlockKey(cacheID, blockOffset uint64) BlockKey {
	var k BlockKey
	buf := base.EncodeFixed64(k[:0], cacheID)
	buf = base.EncodeFixed64(buf, blockOffset)
	copy(k[:], buf)
	return k
}

func hashBlockKey(k BlockKey) uint32 {
	return fnv1a(k[:])
}

// BlockCache caches decompressed data-block bytes. V is typically []byte
// or a small struct wrapping it; kept generic so internal/cache has no
// dependency on sstable's block representation.
type BlockCache[V any] struct {
	cache *Cache[BlockKey, V]
	ids   IDAllocator
}

// NewBlockCache builds a block cache with the given total capacity
// (interpreted by the caller as bytes or block count; this package is
// agnostic and simply enforces "N entries per shard").
func NewBlockCache[V any](capacity int) *BlockCache[V] {
	return &BlockCache[V]{cache: New[BlockKey, V](capacity, hashBlockKey, nil)}
}

// NewID allocates a fresh cache_id for a newly opened table.
func (bc *BlockCache[V]) NewID() uint64 {
	return bc.ids.NewID()
}

// Get looks up a cached block.
func (bc *BlockCache[V]) Get(key BlockKey) (Handle[BlockKey, V], bool) {
	return bc.cache.Get(key)
}

// Put inserts a decompressed block, returning a pinned handle on it.
func (bc *BlockCache[V]) Put(key BlockKey, value V) Handle[BlockKey, V] {
	return bc.cache.Put(key, value)
}
