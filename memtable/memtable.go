package memtable

import (
	"math/rand"

	"github.com/kvstore/lsmcore/internal/base"
)

// Memtable is the mutable in-memory tier described in spec.md §4.5: an
// ordered map from encoded internal key to value, supporting Add (always
// succeeds) and Get (MVCC read at a caller-supplied snapshot sequence
// number). A Memtable is not safe for concurrent use at all, including a
// single writer racing a reader; spec.md §5's single-writer/many-readers
// model is a host-level contract, not one this package enforces with its
// own locking, matching the teacher's memtable design (its own
// concurrency guard lives one layer up, in the DB that owns the
// memtable).
type Memtable struct {
	cmp  *base.Comparer
	list *skiplist
}

// New creates an empty Memtable ordered by cmp's internal-key comparator.
func New(cmp *base.Comparer) *Memtable {
	ikc := base.InternalKeyComparer{UserComparer: cmp}
	rnd := rand.New(rand.NewSource(0xdeadbeef))
	return &Memtable{
		cmp:  cmp,
		list: newSkiplist(ikc.Compare, rnd),
	}
}

// Add inserts value under userKey at seqNum with the given kind. value is
// ignored (and may be nil) for InternalKeyKindDeletion. The key and value
// bytes are copied; callers may reuse their buffers afterward.
func (m *Memtable) Add(seqNum uint64, kind base.InternalKeyKind, userKey, value []byte) {
	ik := base.MakeInternalKey(userKey, seqNum, kind)
	encoded := ik.EncodeAppend(make([]byte, 0, ik.Size()))

	var storedValue []byte
	if kind == base.InternalKeyKindSet {
		storedValue = append([]byte(nil), value...)
	}
	m.list.insert(encoded, storedValue)
}

// Get looks up userKey as of snapshot seqNum: the most recent entry with
// SeqNum <= seqNum. It returns (value, false, true) for a live Set,
// (nil, true, true) for a Deletion, and (nil, false, false) if no entry
// for userKey exists at or below seqNum — matching spec.md §8
// scenario S6's three-way outcome.
func (m *Memtable) Get(userKey []byte, seqNum uint64) (value []byte, isTombstone bool, found bool) {
	search := base.InternalKey{UserKey: userKey, SeqNum: seqNum, Kind: base.InternalKeyKindSeek}
	target := search.EncodeAppend(make([]byte, 0, search.Size()))

	node := m.list.seek(target)
	if node == nil {
		return nil, false, false
	}
	ik, ok := base.DecodeInternalKey(node.key)
	if !ok || m.cmp.Compare(ik.UserKey, userKey) != 0 {
		return nil, false, false
	}
	if ik.Kind == base.InternalKeyKindDeletion {
		return nil, true, true
	}
	return node.value, false, true
}

// NewIter returns an iterator over every entry in the memtable in
// internal-key order (ascending user key, then descending sequence),
// i.e. the exact order an SST writer needs to consume the memtable in
// during a flush, per spec.md §4.5.
func (m *Memtable) NewIter() *Iterator {
	return &Iterator{node: m.list.first()}
}

// Len reports the number of entries added, for flush-threshold decisions
// made by a host above this module's scope.
func (m *Memtable) Len() int {
	return m.list.count
}

// Iterator walks a Memtable's entries in internal-key order. The zero
// value is not usable; obtain one from Memtable.NewIter.
type Iterator struct {
	node *skipNode
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool { return it.node != nil }

// Key returns the current entry's encoded internal key. The slice aliases
// memtable storage and must not be retained past the next Next call.
func (it *Iterator) Key() []byte { return it.node.key }

// Value returns the current entry's value, or nil for a Deletion.
func (it *Iterator) Value() []byte { return it.node.value }

// Next advances to the following entry.
func (it *Iterator) Next() {
	if it.node != nil {
		it.node = it.node.forward[0]
	}
}
