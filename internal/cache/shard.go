// Package cache implements the two sharded LRUs spec.md §4.6 describes:
// a table cache (open SST handles) and a block cache (decompressed
// block bytes), built on one shared shard implementation. Grounded on
// spec.md §4.6's literal IN-USE/LRU design; node linkage and the
// handle-pins-entry discipline follow the reference-counted-node pattern
// visible across the pack (e.g. trie-node refcounting in
// other_examples/0092014c_ethereum-go-ethereum__triedb-pathdb-history_trienode.go.go),
// adapted to an LRU's two-list partition instead of a single free list.
package cache

import "sync"

// NumShards is fixed at 16, per spec.md §4.6.
const NumShards = 16

// shardBits is log2(NumShards); the shard index is the top shardBits
// bits of the 32-bit key hash.
const shardBits = 4

// node is one cache entry. It lives in exactly one of its shard's two
// doubly-linked lists (IN-USE while refCount > 0, LRU while refCount ==
// 0), per spec.md §4.6's invariant; list moves are decided by refCount,
// and inUse mirrors it.
type node[K comparable, V any] struct {
	key      K
	value    V
	refCount int
	prev     *node[K, V]
	next     *node[K, V]
	inUse    bool
}

// Handle pins a cache entry: the value is safe to dereference without
// further locking for as long as the Handle is live. A Handle MUST be
// released exactly once, typically via a deferred Release call.
type Handle[K comparable, V any] struct {
	shard *shard[K, V]
	node  *node[K, V]
}

// Value returns the pinned value.
func (h Handle[K, V]) Value() V {
	return h.node.value
}

// Valid reports whether the handle actually pins an entry (a miss from
// Get returns a zero Handle with Valid() == false).
func (h Handle[K, V]) Valid() bool {
	return h.node != nil
}

// Release unpins the entry. Once every outstanding Handle for a key has
// been released, the node becomes eligible for LRU eviction. Release may
// be called at most once per Handle.
func (h Handle[K, V]) Release() {
	if h.node == nil {
		return
	}
	h.shard.release(h.node)
}

// shard is one of the cache's 16 independently-locked partitions.
type shard[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	table    map[K]*node[K, V]

	lruHead, lruTail       node[K, V] // sentinels
	inUseHead, inUseTail   node[K, V] // sentinels
	onEvict                func(key K, value V)
}

func newShard[K comparable, V any](capacity int, onEvict func(K, V)) *shard[K, V] {
	s := &shard[K, V]{
		capacity: capacity,
		table:    make(map[K]*node[K, V]),
		onEvict:  onEvict,
	}
	s.lruHead.next, s.lruTail.prev = &s.lruTail, &s.lruHead
	s.inUseHead.next, s.inUseTail.prev = &s.inUseTail, &s.inUseHead
	return s
}

func listRemove[K comparable, V any](n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func listPushFront[K comparable, V any](head *node[K, V], n *node[K, V]) {
	n.next = head.next
	n.prev = head
	head.next.prev = n
	head.next = n
}

// get looks up key, pinning and returning a handle on a hit.
func (s *shard[K, V]) get(key K) (Handle[K, V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.table[key]
	if !ok {
		return Handle[K, V]{}, false
	}
	if n.refCount == 0 {
		listRemove(n)
		listPushFront(&s.inUseHead, n)
		n.inUse = true
	} else {
		// Already IN-USE: move to the IN-USE head to keep recency order
		// meaningful if the caller later inspects it, though eviction never
		// considers IN-USE nodes.
		listRemove(n)
		listPushFront(&s.inUseHead, n)
	}
	n.refCount++
	return Handle[K, V]{shard: s, node: n}, true
}

// put inserts or overwrites key's value, pinning it with a fresh
// reference and evicting from the LRU list as needed to respect
// capacity. The returned handle must be released by the caller.
func (s *shard[K, V]) put(key K, value V) Handle[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.table[key]; ok {
		n.value = value
		listRemove(n)
		listPushFront(&s.inUseHead, n)
		n.inUse = true
		n.refCount++
		return Handle[K, V]{shard: s, node: n}
	}

	n := &node[K, V]{key: key, value: value, refCount: 1, inUse: true}
	s.table[key] = n
	listPushFront(&s.inUseHead, n)

	for len(s.table) > s.capacity {
		victim := s.lruTail.prev
		if victim == &s.lruHead {
			break // nothing evictable: every node is pinned
		}
		listRemove(victim)
		delete(s.table, victim.key)
		if s.onEvict != nil {
			s.onEvict(victim.key, victim.value)
		}
	}

	return Handle[K, V]{shard: s, node: n}
}

// release decrements n's reference count, moving it to the LRU list once
// no handle references it any longer (or destroying it, if it was erased
// while pinned).
func (s *shard[K, V]) release(n *node[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.refCount--
	if n.refCount < 0 {
		panic("cache: Release called more times than Get/Put pinned")
	}
	if n.refCount == 0 {
		listRemove(n)
		n.inUse = false
		if s.table[n.key] != n {
			// Erased while pinned: the last handle destroys the value.
			if s.onEvict != nil {
				s.onEvict(n.key, n.value)
			}
			return
		}
		listPushFront(&s.lruHead, n)
	}
}

// erase unconditionally removes key from the shard. If the node is
// currently pinned, it is detached from the table immediately (so no new
// Get can find it) but its value is destroyed only once the last
// outstanding handle is released.
func (s *shard[K, V]) erase(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.table[key]
	if !ok {
		return
	}
	delete(s.table, key)
	if n.refCount == 0 {
		listRemove(n)
		if s.onEvict != nil {
			s.onEvict(n.key, n.value)
		}
	}
	// If still pinned, it stays on the IN-USE list (unreachable via the
	// map) until the last Handle releases it; release() then sees that the
	// map no longer holds it, takes it off the list and invokes onEvict.
}

// len reports the number of entries currently tracked by the shard
// (both pinned and unpinned), used by tests asserting eviction counts.
func (s *shard[K, V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}
