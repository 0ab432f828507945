package sstable

import (
	"encoding/binary"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/kvstore/lsmcore/bloom"
	"github.com/kvstore/lsmcore/internal/base"
	"github.com/kvstore/lsmcore/internal/crc"
)

// Compression identifies a block's compression scheme, per spec.md §3.
type Compression uint8

const (
	CompressionNone   Compression = 0
	CompressionSnappy Compression = 1
	CompressionZstd   Compression = 2
)

// WriterOptions configures a Writer, defaulted the way
// other_examples' rockyardkv table builder defaults its BuilderOptions:
// zero-value fields are filled in by NewWriter rather than requiring
// every caller to populate the whole struct.
type WriterOptions struct {
	Comparer            *base.Comparer
	BlockSize           int
	BlockRestartInterval int
	FilterBitsPerKey    int // 0 disables the filter block
	Compression         Compression
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = defaultRestartInterval
	}
	return o
}

// Writer builds one SST file from an ascending stream of internal
// key/value pairs, per spec.md §4.4's layout: data blocks, an optional
// filter block, a meta-index block, an index block, and a footer.
type Writer struct {
	w    base.WritableFile
	opts WriterOptions
	ikc  base.InternalKeyComparer

	offset uint64
	err    error

	dataBlock  *blockWriter
	indexBlock *blockWriter
	filter     *filterBlockWriter

	pendingIndexEntry bool
	pendingHandle     blockHandle
	lastKey           []byte

	numEntries int
	zstdEnc    *zstd.Encoder
}

// NewWriter wraps w, ready to accept ascending Add calls.
func NewWriter(w base.WritableFile, opts WriterOptions) *Writer {
	opts = opts.withDefaults()
	writer := &Writer{
		w:          w,
		opts:       opts,
		ikc:        base.InternalKeyComparer{UserComparer: opts.Comparer},
		dataBlock:  newBlockWriter(opts.BlockRestartInterval),
		indexBlock: newBlockWriter(1),
	}
	if opts.FilterBitsPerKey > 0 {
		writer.filter = newFilterBlockWriter(bloom.NewPolicy(opts.FilterBitsPerKey))
	}
	if opts.Compression == CompressionZstd {
		enc, _ := zstd.NewWriter(nil)
		writer.zstdEnc = enc
	}
	return writer
}

// Add appends one internal key/value pair. Keys must arrive in ascending
// internal-key order; Add does not itself validate this (the caller —
// typically a memtable iterator or a merge of SST iterators — already
// guarantees it), matching the teacher's builder contract.
func (w *Writer) Add(key base.InternalKey, value []byte) error {
	if w.err != nil {
		return w.err
	}

	if w.pendingIndexEntry {
		sep := w.ikc.Separator(nil, w.lastKey, keyBuf(key))
		w.indexBlock.addEncodedKey(sep, encodeHandle(w.pendingHandle))
		w.pendingIndexEntry = false
	}

	buf := keyBuf(key)
	w.dataBlock.add(key, value)
	if w.filter != nil {
		w.filter.addKey(key.UserKey)
	}
	w.numEntries++
	w.lastKey = append(w.lastKey[:0], buf...)

	if w.dataBlock.estimatedSize() >= w.opts.BlockSize {
		w.flushDataBlock()
	}
	return w.err
}

func keyBuf(key base.InternalKey) []byte {
	buf := make([]byte, key.Size())
	key.Encode(buf)
	return buf
}

func (w *Writer) flushDataBlock() {
	if w.err != nil || w.dataBlock.empty() {
		return
	}
	body := w.dataBlock.finish()
	handle, err := w.writeBlockWithTrailer(body)
	if err != nil {
		w.err = err
		return
	}
	// startBlock runs after the write, with the offset the *next* block
	// will start at, so each subfilter generated here covers the keys of
	// every block that started in its 2KiB region — matching where keyMayMatch's
	// blockOffset>>baseLg lookup expects to find them.
	if w.filter != nil {
		w.filter.startBlock(w.offset)
	}
	w.pendingHandle = handle
	w.pendingIndexEntry = true
	w.dataBlock.reset()
}

func (bw *blockWriter) reset() {
	bw.nEntries = 0
	bw.buf = bw.buf[:0]
	bw.restarts = bw.restarts[:0]
}

// writeBlockWithTrailer compresses body per the writer's Compression
// option, writes it followed by the 5-byte trailer (compression type +
// masked CRC32C over body-as-written ++ type byte), and returns a handle
// to it.
func (w *Writer) writeBlockWithTrailer(body []byte) (blockHandle, error) {
	compType := CompressionNone
	payload := body
	switch w.opts.Compression {
	case CompressionSnappy:
		compressed := snappy.Encode(nil, body)
		if len(compressed) < len(body) {
			payload = compressed
			compType = CompressionSnappy
		}
	case CompressionZstd:
		if w.zstdEnc != nil {
			compressed := w.zstdEnc.EncodeAll(body, nil)
			if len(compressed) < len(body) {
				payload = compressed
				compType = CompressionZstd
			}
		}
	}

	handle := blockHandle{offset: w.offset, length: uint64(len(payload))}

	if _, err := w.w.Write(payload); err != nil {
		return blockHandle{}, err
	}
	w.offset += uint64(len(payload))

	var trailer [5]byte
	trailer[0] = byte(compType)
	c := crc.New(payload)
	c = crc.Extend(c, trailer[:1])
	binary.LittleEndian.PutUint32(trailer[1:], uint32(c.Mask()))

	if _, err := w.w.Write(trailer[:]); err != nil {
		return blockHandle{}, err
	}
	w.offset += uint64(len(trailer))

	return handle, nil
}

func encodeHandle(h blockHandle) []byte {
	return h.encodeVarints(nil)
}

// Finish flushes the last data block, the filter block, the meta-index
// block, the index block, and the footer, then syncs and returns.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	w.flushDataBlock()
	if w.err != nil {
		return w.err
	}
	if w.pendingIndexEntry {
		succ := w.ikc.Successor(nil, w.lastKey)
		w.indexBlock.addEncodedKey(succ, encodeHandle(w.pendingHandle))
		w.pendingIndexEntry = false
	}

	var filterHandle blockHandle
	haveFilter := false
	if w.filter != nil {
		filterData := w.filter.finish()
		h, err := w.writeRawBlock(filterData)
		if err != nil {
			return err
		}
		filterHandle = h
		haveFilter = true
	}

	metaindex := newBlockWriter(1)
	if haveFilter {
		metaindex.addEncodedKey([]byte("filter.leveldb.BuiltinBloomFilter"), encodeHandle(filterHandle))
	}
	metaindexBody := metaindex.finish()
	metaindexHandle, err := w.writeBlockWithTrailer(metaindexBody)
	if err != nil {
		return err
	}

	indexBody := w.indexBlock.finish()
	indexHandle, err := w.writeBlockWithTrailer(indexBody)
	if err != nil {
		return err
	}

	foot := footer{metaindexBH: metaindexHandle, indexBH: indexHandle}
	if _, err := w.w.Write(foot.encode()); err != nil {
		return err
	}

	if err := w.w.Sync(); err != nil {
		return err
	}
	return w.w.Close()
}

// writeRawBlock writes data with no compression and no trailer (the
// filter block carries its own internal offsets/CRC-free format, per
// spec.md §3's "Filter block" wire layout).
func (w *Writer) writeRawBlock(data []byte) (blockHandle, error) {
	handle := blockHandle{offset: w.offset, length: uint64(len(data))}
	if _, err := w.w.Write(data); err != nil {
		return blockHandle{}, err
	}
	w.offset += uint64(len(data))
	return handle, nil
}

// NumEntries reports how many key/value pairs have been added so far.
func (w *Writer) NumEntries() int { return w.numEntries }
