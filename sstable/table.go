package sstable

import (
	"github.com/kvstore/lsmcore/internal/base"
)

// footerLen is the fixed size of an SST footer, per spec.md §3/§6: two
// varint-encoded block handles, zero-padded to byte 40, then an 8-byte
// magic split into two little-endian uint32s.
const footerLen = 48

// magic is 0xdb4775248b80fb57 written little-endian, matching the
// teacher's levelDBMagic byte string.
var magic = [8]byte{0x57, 0xfb, 0x80, 0x8b, 0x24, 0x75, 0x47, 0xdb}

// blockHandle locates a block within an SST file: its offset and the
// size of its body, excluding the 5-byte trailer.
type blockHandle struct {
	offset, length uint64
}

func (h blockHandle) encodeVarints(buf []byte) []byte {
	buf = base.PutVarint64(buf, h.offset)
	buf = base.PutVarint64(buf, h.length)
	return buf
}

func decodeBlockHandle(b []byte) (blockHandle, int, bool) {
	offset, n1, ok1 := base.GetVarint64(b)
	if !ok1 {
		return blockHandle{}, 0, false
	}
	length, n2, ok2 := base.GetVarint64(b[n1:])
	if !ok2 {
		return blockHandle{}, 0, false
	}
	return blockHandle{offset: offset, length: length}, n1 + n2, true
}

// footer is the decoded tail of an SST file. Only the single 48-byte
// LevelDB-style layout spec.md §3 mandates is supported: the teacher's
// RocksDB/Pebble multi-version footer negotiation (checksum-type byte,
// footer version, alternate magics) is dropped, per DESIGN.md.
type footer struct {
	metaindexBH blockHandle
	indexBH     blockHandle
}

// readFooter reads and parses the last footerLen bytes of a table whose
// total size is size.
func readFooter(f base.RandomAccessFile, size int64) (footer, error) {
	if size < footerLen {
		return footer{}, base.CorruptionErrorf("sstable: file size %d smaller than footer", size)
	}
	buf := make([]byte, footerLen)
	if _, err := f.ReadAt(buf, size-footerLen); err != nil {
		return footer{}, base.CorruptionErrorf("sstable: could not read footer: %v", err)
	}
	return parseFooter(buf, size)
}

func parseFooter(buf []byte, size int64) (footer, error) {
	if len(buf) != footerLen {
		return footer{}, base.CorruptionErrorf("sstable: footer must be %d bytes, got %d", footerLen, len(buf))
	}
	var gotMagic [8]byte
	copy(gotMagic[:], buf[footerLen-8:])
	if gotMagic != magic {
		return footer{}, base.CorruptionErrorf("sstable: bad magic number: %x", gotMagic)
	}

	var foot footer
	rest := buf
	mbh, n, ok := decodeBlockHandle(rest)
	if !ok || mbh.offset+mbh.length > uint64(size) {
		return footer{}, base.CorruptionErrorf("sstable: bad metaindex block handle")
	}
	foot.metaindexBH = mbh
	rest = rest[n:]

	ibh, _, ok := decodeBlockHandle(rest)
	if !ok || ibh.offset+ibh.length > uint64(size) {
		return footer{}, base.CorruptionErrorf("sstable: bad index block handle")
	}
	foot.indexBH = ibh
	return foot, nil
}

func (f footer) encode() []byte {
	buf := make([]byte, footerLen)
	n := 0
	n += copy(buf[n:], f.metaindexBH.encodeVarints(nil))
	n += copy(buf[n:], f.indexBH.encodeVarints(nil))
	copy(buf[footerLen-8:], magic[:])
	return buf
}
