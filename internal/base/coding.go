// Package base holds the types shared by every tier of the storage engine:
// the byte-level coding helpers, the internal-key format and comparator,
// error classification, filenames, and the small Env/Logger interfaces the
// rest of the module is built against.
package base

import "encoding/binary"

// MaxVarint32Len is the maximum number of bytes a varint32 can occupy.
const MaxVarint32Len = 5

// MaxVarint64Len is the maximum number of bytes a varint64 can occupy.
const MaxVarint64Len = 10

// EncodeFixed32 appends v to dst in little-endian byte order.
func EncodeFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// EncodeFixed64 appends v to dst in little-endian byte order.
func EncodeFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeFixed32 decodes a little-endian uint32 from the front of b.
// It panics if b is shorter than 4 bytes, matching the teacher's
// convention that fixed-width decodes operate on buffers already
// validated for length by the caller.
func DecodeFixed32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// DecodeFixed64 decodes a little-endian uint64 from the front of b.
func DecodeFixed64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// PutVarint32 appends the varint encoding of v to dst.
func PutVarint32(dst []byte, v uint32) []byte {
	var buf [MaxVarint32Len]byte
	n := binary.PutUvarint(buf[:], uint64(v))
	return append(dst, buf[:n]...)
}

// PutVarint64 appends the varint encoding of v to dst.
func PutVarint64(dst []byte, v uint64) []byte {
	var buf [MaxVarint64Len]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// GetVarint32 decodes a varint32 from the front of b, returning the value,
// the number of bytes consumed, and a bool indicating success. It reports
// failure (without panicking) on truncated input or a chain that overflows
// 32 bits.
func GetVarint32(b []byte) (v uint32, n int, ok bool) {
	u, n := binary.Uvarint(b)
	if n <= 0 || u > 1<<32-1 {
		return 0, 0, false
	}
	// binary.Uvarint itself rejects chains longer than 10 bytes (64-bit
	// overflow) but not chains between 5 and 10 bytes whose value happens
	// to fit in 32 bits after all trailing bytes are zero-padded garbage;
	// reject anything that took more than MaxVarint32Len bytes outright.
	if n > MaxVarint32Len {
		return 0, 0, false
	}
	return uint32(u), n, true
}

// GetVarint64 decodes a varint64 from the front of b.
func GetVarint64(b []byte) (v uint64, n int, ok bool) {
	u, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, 0, false
	}
	return u, n, true
}

// PutLengthPrefixedBytes appends a varint32 length prefix followed by data.
func PutLengthPrefixedBytes(dst []byte, data []byte) []byte {
	dst = PutVarint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// GetLengthPrefixedBytes decodes a length-prefixed byte string from the
// front of b, returning the slice (aliasing b) and the remaining bytes.
func GetLengthPrefixedBytes(b []byte) (data, rest []byte, ok bool) {
	length, n, ok := GetVarint32(b)
	if !ok || uint32(len(b)-n) < length {
		return nil, nil, false
	}
	return b[n : n+int(length)], b[n+int(length):], true
}
