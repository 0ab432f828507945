package sstable

import "github.com/kvstore/lsmcore/internal/base"

// Iterator composes an index-block iterator with an on-demand data-block
// iterator, per spec.md §4.4's "Two-level iterator" and supplemented by
// original_source/src/table/two_level_iterator.rs's
// skip_empty_data_blocks_forward/backward helpers (spec.md §4's
// supplemented-features note): a data block can legitimately be empty of
// entries matching a seek (though never entirely empty of entries), so
// advancing the index iterator and reloading must loop, not branch once.
type Iterator struct {
	r         *Reader
	fillCache bool

	index *blockIter
	data  *blockIter
	err   error

	// lastHandleOffset tracks which data block data currently wraps, so
	// repositioning the index iterator onto the block already loaded
	// (e.g. a SeekGE that lands in it) doesn't force a redundant block
	// read.
	lastHandleOffset uint64
	haveBlock        bool
}

func (it *Iterator) initDataBlock() {
	if !it.index.Valid() {
		it.data = nil
		return
	}
	handle, _, ok := decodeBlockHandle(it.index.Value())
	if !ok {
		it.err = base.CorruptionErrorf("sstable: corrupted index entry")
		it.data = nil
		return
	}
	if it.haveBlock && it.data != nil && handle.offset == it.lastHandleOffset {
		return
	}
	d, err := it.r.readDataBlock(handle, it.fillCache)
	if err != nil {
		it.err = err
		it.data = nil
		return
	}
	it.data = d
	it.lastHandleOffset = handle.offset
	it.haveBlock = true
}

func (it *Iterator) skipEmptyForward() {
	for it.data == nil || !it.data.Valid() {
		if !it.index.Next() {
			it.data = nil
			return
		}
		it.initDataBlock()
		if it.data != nil {
			it.data.First()
		}
	}
}

// First positions the iterator at the table's first entry.
func (it *Iterator) First() bool {
	if !it.index.First() {
		it.data = nil
		return false
	}
	it.initDataBlock()
	if it.data != nil {
		it.data.First()
	}
	it.skipEmptyForward()
	return it.Valid()
}

// SeekGE positions the iterator at the first entry whose internal key is
// >= the search key built from userKey.
func (it *Iterator) SeekGE(userKey []byte) bool {
	if !it.index.SeekGE(userKey) {
		it.data = nil
		return false
	}
	it.initDataBlock()
	if it.data != nil {
		it.data.SeekGE(userKey)
	}
	it.skipEmptyForward()
	return it.Valid()
}

// Next advances to the following entry.
func (it *Iterator) Next() bool {
	if it.data == nil {
		return false
	}
	if !it.data.Next() {
		it.skipEmptyForward()
	}
	return it.Valid()
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool {
	return it.data != nil && it.data.Valid()
}

// Key returns the current entry's decoded internal key.
func (it *Iterator) Key() base.InternalKey { return it.data.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.data.Value() }

// Error reports the first error encountered by either the index or data
// iterator.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.index.Error() != nil {
		return it.index.Error()
	}
	if it.data != nil {
		return it.data.Error()
	}
	return nil
}
