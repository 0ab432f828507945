// Package sstable implements the on-disk sorted-string-table format
// described in spec.md §3/§4.4: data blocks, a two-level index, a bloom
// filter block, and a 48-byte LevelDB-style footer.
package sstable

import (
	"encoding/binary"
	"sort"

	"github.com/kvstore/lsmcore/internal/base"
)

// defaultRestartInterval is the number of entries between restart
// points in a data or index block, per spec.md §3.
const defaultRestartInterval = 16

// blockWriter accumulates prefix-compressed entries into one block,
// directly adapted from other_examples' dialtr-pebble blockWriter (the
// shared/unshared/value varint triple, restart array, and trailer
// layout), generalized from that snapshot's hardcoded InternalKey type
// to this module's base.InternalKey and from a fixed restart interval
// constant to a configurable one so index blocks (restart interval 1)
// and data blocks (restart interval defaultRestartInterval) share one
// implementation.
type blockWriter struct {
	restartInterval int
	nEntries        int
	buf             []byte
	restarts        []uint32
	curKey          []byte
	prevKey         []byte
	tmp             [binary.MaxVarintLen64 * 3]byte
}

func newBlockWriter(restartInterval int) *blockWriter {
	return &blockWriter{restartInterval: restartInterval}
}

// add encodes key as an internal key before storing it. Used for data
// blocks, whose keys are internal keys per spec.md §3.
func (w *blockWriter) add(key base.InternalKey, value []byte) {
	w.curKey, w.prevKey = w.prevKey, w.curKey

	size := key.Size()
	if cap(w.curKey) < size {
		w.curKey = make([]byte, 0, size*2)
	}
	w.curKey = w.curKey[:size]
	key.Encode(w.curKey)
	w.addEncoded(value)
}

// addEncodedKey stores key, already in its on-disk byte form, as the
// next entry's key. Kept distinct from add so the index block, whose
// separators are already-encoded internal keys, and the meta-index
// block, whose keys are plain byte strings rather than internal keys
// (spec.md §3's "or by byte-wise comparator for the meta-index"), can
// bypass InternalKey.Encode entirely.
func (w *blockWriter) addEncodedKey(key []byte, value []byte) {
	w.curKey, w.prevKey = w.prevKey, w.curKey
	if cap(w.curKey) < len(key) {
		w.curKey = make([]byte, 0, len(key)*2)
	}
	w.curKey = append(w.curKey[:0], key...)
	w.addEncoded(value)
}

// addEncoded assumes w.curKey already holds the entry's raw key bytes
// and emits the shared/unshared/value varint triple plus payload.
func (w *blockWriter) addEncoded(value []byte) {
	size := len(w.curKey)
	shared := 0
	if w.nEntries%w.restartInterval == 0 {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
	} else {
		shared = sharedPrefixLen(w.curKey, w.prevKey)
	}

	n := binary.PutUvarint(w.tmp[0:], uint64(shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(size-shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(len(value)))
	w.buf = append(w.buf, w.tmp[:n]...)
	w.buf = append(w.buf, w.curKey[shared:]...)
	w.buf = append(w.buf, value...)

	w.nEntries++
}

func (w *blockWriter) empty() bool { return w.nEntries == 0 }

// finish appends the restart-point array and count trailer and returns
// the completed block body (not yet compressed or CRC'd).
func (w *blockWriter) finish() []byte {
	if w.nEntries == 0 {
		w.restarts = append(w.restarts, 0)
	}
	var tmp4 [4]byte
	for _, x := range w.restarts {
		binary.LittleEndian.PutUint32(tmp4[:], x)
		w.buf = append(w.buf, tmp4[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(w.restarts)))
	w.buf = append(w.buf, tmp4[:]...)
	return w.buf
}

func (w *blockWriter) estimatedSize() int {
	return len(w.buf) + 4*(len(w.restarts)+1)
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// blockIter iterates over one decoded block's entries. Unlike the
// grounding example, it decodes directly from the block's byte slice at
// each offset (no unsafe.Pointer arithmetic): this CORE does not need
// the allocation-free fast path and slice indexing is easier to audit
// for correctness against spec.md's literal block layout.
type blockIter struct {
	cmp         base.Compare
	data        []byte
	restarts    int // byte offset where the restart-point array begins
	numRestarts int
	offset      int // offset of the current entry
	nextOffset  int
	key         []byte
	val         []byte
	ikey        base.InternalKey
	err         error
}

// newBlockIter validates block's trailer and returns an iterator over
// it. block must be the decompressed block body including its restart
// array and count, per spec.md §3.
func newBlockIter(cmp base.Compare, block []byte) (*blockIter, error) {
	if len(block) < 4 {
		return nil, base.CorruptionErrorf("sstable: block too small (%d bytes)", len(block))
	}
	numRestarts := int(binary.LittleEndian.Uint32(block[len(block)-4:]))
	if numRestarts == 0 {
		return nil, base.CorruptionErrorf("sstable: block has no restart points")
	}
	restarts := len(block) - 4*(1+numRestarts)
	if restarts < 0 {
		return nil, base.CorruptionErrorf("sstable: corrupted restart points")
	}
	return &blockIter{
		cmp:         cmp,
		data:        block,
		restarts:    restarts,
		numRestarts: numRestarts,
	}, nil
}

func (i *blockIter) decodeEntryAt(offset int) (nextOffset int, key, val []byte, ok bool) {
	shared, n1, ok1 := base.GetVarint64(i.data[offset:])
	if !ok1 {
		return 0, nil, nil, false
	}
	unshared, n2, ok2 := base.GetVarint64(i.data[offset+n1:])
	if !ok2 {
		return 0, nil, nil, false
	}
	valLen, n3, ok3 := base.GetVarint64(i.data[offset+n1+n2:])
	if !ok3 {
		return 0, nil, nil, false
	}
	keyStart := offset + n1 + n2 + n3
	if int(shared) > len(i.key) || keyStart+int(unshared) > len(i.data) {
		return 0, nil, nil, false
	}
	newKey := append(append([]byte(nil), i.key[:shared]...), i.data[keyStart:keyStart+int(unshared)]...)
	valStart := keyStart + int(unshared)
	if valStart+int(valLen) > len(i.data) {
		return 0, nil, nil, false
	}
	return valStart + int(valLen), newKey, i.data[valStart : valStart+int(valLen)], true
}

func (i *blockIter) loadEntry() bool {
	next, key, val, ok := i.decodeEntryAt(i.offset)
	if !ok {
		i.err = base.CorruptionErrorf("sstable: corrupted block entry at offset %d", i.offset)
		i.offset = -1
		return false
	}
	i.key, i.val, i.nextOffset = key, val, next
	ik, decOK := base.DecodeInternalKey(i.key)
	if !decOK {
		i.err = base.CorruptionErrorf("sstable: corrupted internal key in block")
		i.offset = -1
		return false
	}
	i.ikey = ik
	return true
}

func (i *blockIter) restartPoint(idx int) int {
	return int(binary.LittleEndian.Uint32(i.data[i.restarts+4*idx:]))
}

// restartKey decodes only the key portion stored at a restart point
// (whose shared-prefix length is always 0).
func (i *blockIter) restartKey(idx int) []byte {
	offset := i.restartPoint(idx)
	_, n1, _ := base.GetVarint64(i.data[offset:])
	unshared, n2, _ := base.GetVarint64(i.data[offset+n1:])
	_, n3, _ := base.GetVarint64(i.data[offset+n1+n2:])
	keyStart := offset + n1 + n2 + n3
	return i.data[keyStart : keyStart+int(unshared)]
}

// SeekGE positions the iterator at the first entry whose internal key is
// >= the search key built from userKey, per spec.md §4.4.
func (i *blockIter) SeekGE(userKey []byte) bool {
	target := base.MakeSearchKey(userKey)
	ikc := base.InternalKeyComparer{UserComparer: &base.Comparer{Compare: i.cmp}}

	targetBuf := target.EncodeAppend(nil)
	index := sort.Search(i.numRestarts, func(j int) bool {
		return ikc.Compare(targetBuf, i.restartKey(j)) < 0
	})

	i.offset = 0
	if index > 0 {
		i.offset = i.restartPoint(index - 1)
	}
	i.key = i.key[:0]
	if !i.loadEntry() {
		return false
	}

	for i.Valid() {
		kbuf := i.ikey.EncodeAppend(nil)
		if ikc.Compare(kbuf, targetBuf) >= 0 {
			return true
		}
		if !i.Next() {
			return false
		}
	}
	return false
}

// First positions the iterator at the block's first entry.
func (i *blockIter) First() bool {
	i.offset = 0
	i.key = i.key[:0]
	return i.loadEntry()
}

// Next advances to the following entry, returning false once the
// restart-point array is reached.
func (i *blockIter) Next() bool {
	i.offset = i.nextOffset
	if !i.Valid() {
		return false
	}
	return i.loadEntry()
}

// Valid reports whether the iterator is positioned on an in-range entry.
func (i *blockIter) Valid() bool {
	return i.offset >= 0 && i.offset < i.restarts
}

// Key returns the current entry's decoded internal key.
func (i *blockIter) Key() base.InternalKey { return i.ikey }

// Value returns the current entry's raw value bytes.
func (i *blockIter) Value() []byte { return i.val }

// Error returns any corruption error encountered during iteration.
func (i *blockIter) Error() error { return i.err }

// lookupRawBlock performs a linear scan of a block whose keys are plain
// byte strings rather than internal keys, per spec.md §3's "or by
// byte-wise comparator for the meta-index" clause. The meta-index block
// only ever holds a handful of entries, so no restart-point binary
// search is warranted.
func lookupRawBlock(block []byte, wantKey string) (value []byte, found bool, err error) {
	if len(block) < 4 {
		return nil, false, base.CorruptionErrorf("sstable: meta-index block too small")
	}
	numRestarts := int(binary.LittleEndian.Uint32(block[len(block)-4:]))
	restarts := len(block) - 4*(1+numRestarts)
	if numRestarts == 0 || restarts < 0 {
		return nil, false, base.CorruptionErrorf("sstable: corrupted meta-index restart points")
	}

	var curKey []byte
	offset := 0
	for offset < restarts {
		shared, n1, ok1 := base.GetVarint64(block[offset:])
		unshared, n2, ok2 := base.GetVarint64(block[offset+n1:])
		valLen, n3, ok3 := base.GetVarint64(block[offset+n1+n2:])
		if !ok1 || !ok2 || !ok3 {
			return nil, false, base.CorruptionErrorf("sstable: corrupted meta-index entry")
		}
		keyStart := offset + n1 + n2 + n3
		if int(shared) > len(curKey) || keyStart+int(unshared) > restarts {
			return nil, false, base.CorruptionErrorf("sstable: corrupted meta-index entry")
		}
		curKey = append(append([]byte(nil), curKey[:shared]...), block[keyStart:keyStart+int(unshared)]...)
		valStart := keyStart + int(unshared)
		if valStart+int(valLen) > restarts {
			return nil, false, base.CorruptionErrorf("sstable: corrupted meta-index entry")
		}
		if string(curKey) == wantKey {
			return block[valStart : valStart+int(valLen)], true, nil
		}
		offset = valStart + int(valLen)
	}
	return nil, false, nil
}
