// Package crc implements the masked CRC32C (Castagnoli) checksum used to
// protect WAL fragments and SST blocks. Grounded on spec.md §4.1's
// literal formula and cross-checked against the CRC32C wrapping style
// used throughout the pack (e.g. other_examples' WAL implementations
// wrap hash/crc32 directly rather than reaching for a third-party CRC
// package); no example or ecosystem library in the retrieved corpus ships
// a drop-in CRC32C implementation, so this wraps the standard library.
package crc

import "hash/crc32"

// table is the Castagnoli polynomial table, shared process-wide.
var table = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is added after the bit-rotate in mask/unmask, chosen (per
// spec.md §4.1 and the original LevelDB/RocksDB design) so that a
// zero-filled buffer's CRC does not coincidentally mask to another
// plausible in-band value.
const maskDelta = 0xa282ead8

// CRC is a masked CRC32C value as stored on disk.
type CRC uint32

// New returns the CRC32C of data.
func New(data []byte) CRC {
	return CRC(crc32.Checksum(data, table))
}

// Extend returns the CRC32C of init concatenated with data, without
// materializing the concatenation.
func Extend(init CRC, data []byte) CRC {
	return CRC(crc32.Update(uint32(init), table, data))
}

// Value returns the unmasked CRC32C of data; equivalent to New(data) but named to mirror spec.md's `value(data)`.
func Value(data []byte) CRC {
	return New(data)
}

// Mask transforms a CRC so that it can be safely stored in a stream
// that might itself contain CRCs, by rotating the bits left 17 (the same
// as right 15) and adding a constant: mask(c) = rotl17(c) + 0xa282ead8.
func (c CRC) Mask() CRC {
	x := uint32(c)
	rotated := x<<17 | x>>15
	return CRC(rotated + maskDelta)
}

// Unmask reverses Mask.
func (c CRC) Unmask() CRC {
	rot := uint32(c) - maskDelta
	return CRC(rot<<15 | rot>>17)
}
