package record

import (
	"github.com/kvstore/lsmcore/internal/base"
	"github.com/kvstore/lsmcore/internal/crc"
)

// LogWriter frames logical records into fixed BlockSize blocks and
// writes them to an underlying WritableFile. A LogWriter is not safe for
// concurrent use: spec.md §5 requires the host to serialize add_record
// calls at this layer (single-writer).
type LogWriter struct {
	w        base.WritableFile
	blockOff int // bytes already written into the current block
	buf      [BlockSize]byte
	err      error
}

// NewLogWriter wraps w. The log is assumed to start at a block boundary
// (a fresh file, or one truncated to a multiple of BlockSize by the
// caller).
func NewLogWriter(w base.WritableFile) *LogWriter {
	return &LogWriter{w: w}
}

// AddRecord writes payload as one logical record, splitting it into as
// many physical fragments as the current block has room for, per
// spec.md §4.3. It never splits a 7-byte header across a block boundary.
func (lw *LogWriter) AddRecord(payload []byte) error {
	if lw.err != nil {
		return lw.err
	}

	begin := true
	for {
		leftover := BlockSize - lw.blockOff
		if leftover < HeaderSize {
			// No header fits in the rest of the block: zero-pad it and start
			// a new block. (With exactly HeaderSize bytes left, the code
			// below emits a zero-length fragment there instead, per
			// spec.md §9's open question.)
			if leftover > 0 {
				clear(lw.buf[lw.blockOff:])
				lw.blockOff = BlockSize
				lw.flushBlock()
			}
			lw.blockOff = 0
		}

		avail := BlockSize - lw.blockOff - HeaderSize
		fragmentLen := len(payload)
		end := fragmentLen <= avail
		if !end {
			fragmentLen = avail
		}

		var typ recordType
		switch {
		case begin && end:
			typ = recordTypeFull
		case begin:
			typ = recordTypeFirst
		case end:
			typ = recordTypeLast
		default:
			typ = recordTypeMiddle
		}

		lw.emitFragment(typ, payload[:fragmentLen])
		payload = payload[fragmentLen:]
		begin = false

		if len(payload) == 0 {
			break
		}
	}
	return lw.err
}

// emitFragment writes one physical fragment (header + payload) into the
// in-memory block buffer, flushing full blocks to the underlying file.
func (lw *LogWriter) emitFragment(typ recordType, payload []byte) {
	if lw.err != nil {
		return
	}
	header := lw.buf[lw.blockOff : lw.blockOff+HeaderSize]

	c := crc.New([]byte{byte(typ)})
	c = crc.Extend(c, payload)
	masked := c.Mask()

	base.EncodeFixed32(header[:0], uint32(masked))
	header[4] = byte(len(payload))
	header[5] = byte(len(payload) >> 8)
	header[6] = byte(typ)

	lw.blockOff += HeaderSize
	copy(lw.buf[lw.blockOff:], payload)
	lw.blockOff += len(payload)

	if lw.blockOff == BlockSize {
		lw.flushBlock()
	}
}

func (lw *LogWriter) flushBlock() {
	if lw.err != nil {
		return
	}
	if _, err := lw.w.Write(lw.buf[:lw.blockOff]); err != nil {
		lw.err = err
		return
	}
	lw.blockOff = 0
}

// Flush pushes any buffered bytes for the current (partial) block to the
// underlying file, without padding it to BlockSize. It does not fsync;
// pair with Sync for crash durability, per spec.md §5.
func (lw *LogWriter) Flush() error {
	if lw.err != nil {
		return lw.err
	}
	if lw.blockOff > 0 {
		if _, err := lw.w.Write(lw.buf[:lw.blockOff]); err != nil {
			lw.err = err
			return err
		}
		lw.blockOff = 0
	}
	return nil
}

// Sync flushes buffered bytes and fsyncs the underlying file. Durability
// of prior AddRecord calls is only guaranteed after Sync returns nil,
// per spec.md §5.
func (lw *LogWriter) Sync() error {
	if err := lw.Flush(); err != nil {
		return err
	}
	return lw.w.Sync()
}

// Close flushes, syncs, and closes the underlying file.
func (lw *LogWriter) Close() error {
	if err := lw.Sync(); err != nil {
		_ = lw.w.Close()
		return err
	}
	return lw.w.Close()
}
