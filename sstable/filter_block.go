package sstable

import (
	"encoding/binary"

	"github.com/kvstore/lsmcore/bloom"
	"github.com/kvstore/lsmcore/internal/base"
)

// filterBaseLg is the default base_lg, per spec.md §3: one bloom
// subfilter per 2^11 = 2048 bytes of data-block bytes written.
const filterBaseLg = 11

const filterBase = 1 << filterBaseLg

// filterBlockWriter accumulates keys per data block and emits one bloom
// subfilter every filterBase bytes of data written, per spec.md §9's
// "filter placement rationale": a writer must emit empty subfilters to
// keep the offset array aligned with `data_offset >> base_lg` even
// across data blocks that don't themselves reach a 2KiB boundary.
type filterBlockWriter struct {
	policy      *bloom.Policy
	keys        [][]byte
	filterBytes []byte
	offsets     []uint32
}

func newFilterBlockWriter(policy *bloom.Policy) *filterBlockWriter {
	return &filterBlockWriter{policy: policy}
}

// addKey records a key belonging to the data block currently being
// written. The caller must call startBlock as each data block's starting
// offset becomes known so the right number of subfilters get flushed.
func (fw *filterBlockWriter) addKey(key []byte) {
	fw.keys = append(fw.keys, append([]byte(nil), key...))
}

// startBlock is called with the file offset a new data block will begin
// at, flushing any bloom subfilters whose 2KiB region the writer has now
// fully passed.
func (fw *filterBlockWriter) startBlock(blockOffset uint64) {
	index := blockOffset / filterBase
	for uint64(len(fw.offsets)) < index {
		fw.generateFilter()
	}
}

func (fw *filterBlockWriter) generateFilter() {
	fw.offsets = append(fw.offsets, uint32(len(fw.filterBytes)))
	if len(fw.keys) == 0 {
		return
	}
	fw.filterBytes = fw.policy.CreateFilter(fw.keys, fw.filterBytes)
	fw.keys = fw.keys[:0]
}

// finish flushes any pending keys into a final subfilter and appends the
// offset array, offset-array pointer, and base_lg trailer byte, per
// spec.md §6's "Filter block tail" layout.
func (fw *filterBlockWriter) finish() []byte {
	if len(fw.keys) > 0 {
		fw.generateFilter()
	}
	arrayStart := uint32(len(fw.filterBytes))
	var tmp4 [4]byte
	for _, off := range fw.offsets {
		binary.LittleEndian.PutUint32(tmp4[:], off)
		fw.filterBytes = append(fw.filterBytes, tmp4[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], arrayStart)
	fw.filterBytes = append(fw.filterBytes, tmp4[:]...)
	fw.filterBytes = append(fw.filterBytes, filterBaseLg)
	return fw.filterBytes
}

// filterBlockReader wraps a decoded filter block and answers key-may-match
// queries for a given data-block offset.
type filterBlockReader struct {
	data       []byte
	offsetsOff uint32
	numOffsets int
	baseLg     uint8
}

func newFilterBlockReader(data []byte) (*filterBlockReader, error) {
	if len(data) < 5 {
		return nil, base.CorruptionErrorf("sstable: filter block too small (%d bytes)", len(data))
	}
	baseLg := data[len(data)-1]
	arrayStart := binary.LittleEndian.Uint32(data[len(data)-5:])
	if uint64(arrayStart) > uint64(len(data)-5) {
		return nil, base.CorruptionErrorf("sstable: corrupted filter block offset-array pointer")
	}
	numOffsets := (len(data) - 5 - int(arrayStart)) / 4
	return &filterBlockReader{
		data:       data,
		offsetsOff: arrayStart,
		numOffsets: numOffsets,
		baseLg:     baseLg,
	}, nil
}

// keyMayMatch reports whether key might be present in the data block
// starting at blockOffset.
func (fr *filterBlockReader) keyMayMatch(blockOffset uint64, key []byte) bool {
	index := int(blockOffset >> fr.baseLg)
	if index >= fr.numOffsets {
		// No subfilter was emitted for this region (shouldn't happen for a
		// well-formed table); fail open rather than drop a real key.
		return true
	}
	start := binary.LittleEndian.Uint32(fr.data[fr.offsetsOff+uint32(index*4):])
	var limit uint32
	if index+1 < fr.numOffsets {
		limit = binary.LittleEndian.Uint32(fr.data[fr.offsetsOff+uint32((index+1)*4):])
	} else {
		limit = fr.offsetsOff
	}
	if start > limit || limit > fr.offsetsOff {
		return true
	}
	if start == limit {
		return false
	}
	return bloom.KeyMayMatch(key, fr.data[start:limit])
}
