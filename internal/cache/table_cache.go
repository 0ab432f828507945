package cache

import (
	"github.com/cockroachdb/errors"

	"github.com/kvstore/lsmcore/internal/base"
)

// TableFileNumKey is the table cache's key: an 8-byte little-endian
// encoding of the file number (spec.md §4.6 / §9 open question — fixed
// to little-endian to match the block cache's convention).
type TableFileNumKey [8]byte

func fileNumKey(n base.FileNum) TableFileNumKey {
	var k TableFileNumKey
	base.EncodeFileNum(k[:0], n)
	return k
}

// hashFileNumKey hashes the 8 key bytes with a small FNV-1a mix, cheap
// and sufficient for shard selection (the shard index only consumes the
// top 4 bits).
func hashFileNumKey(k TableFileNumKey) uint32 {
	return fnv1a(k[:])
}

func fnv1a(b []byte) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime32
	}
	return h
}

// OpenTable opens a table file by number, called by TableCache on a
// miss. A full DB façade would resolve this against its vfs.FS; the CORE
// only needs the function shape so it can be exercised by tests with a
// fake Env.
type OpenTable[T any] func(fileNum base.FileNum) (T, error)

// TableCache caches at most one open handle per file number, per
// spec.md §4.6. T is the parsed table type (sstable.Reader in the
// wired-up module; kept generic here so internal/cache has no import
// dependency on sstable).
type TableCache[T any] struct {
	cache *Cache[TableFileNumKey, T]
	open  OpenTable[T]
	close func(T) error
}

// NewTableCache builds a table cache with the given capacity (spec.md
// §6: "table cache capacity = max_open_files - 10"), opening misses via
// open and closing evicted handles via closeFn.
func NewTableCache[T any](capacity int, open OpenTable[T], closeFn func(T) error) *TableCache[T] {
	tc := &TableCache[T]{open: open, close: closeFn}
	tc.cache = New[TableFileNumKey, T](capacity, hashFileNumKey, func(_ TableFileNumKey, v T) {
		if closeFn != nil {
			_ = closeFn(v)
		}
	})
	return tc
}

// FindTable returns a pinned handle to the parsed table for fileNum,
// opening it if this is the first request for that file number.
func (tc *TableCache[T]) FindTable(fileNum base.FileNum) (Handle[TableFileNumKey, T], error) {
	key := fileNumKey(fileNum)
	if h, ok := tc.cache.Get(key); ok {
		return h, nil
	}
	t, err := tc.open(fileNum)
	if err != nil {
		return Handle[TableFileNumKey, T]{}, errors.Wrapf(err, "lsmcore: opening table %d", fileNum)
	}
	return tc.cache.Put(key, t), nil
}

// Evict drops fileNum from the cache, e.g. because its file was deleted.
func (tc *TableCache[T]) Evict(fileNum base.FileNum) {
	tc.cache.Erase(fileNumKey(fileNum))
}
