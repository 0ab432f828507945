package base

import "fmt"

// FileNum is a table's on-disk identifier, assigned by whatever external
// subsystem manages the version/manifest (out of scope here); the CORE
// only needs to turn one into a filename and a cache key.
type FileNum uint64

// TableFilename returns the preferred SST filename for fileNum within
// dbDir, using the modern ".ldb" suffix.
func TableFilename(dbDir string, fileNum FileNum) string {
	return fmt.Sprintf("%s/%06d.ldb", dbDir, uint64(fileNum))
}

// TableFilenameLegacy returns the legacy ".sst" suffixed filename for
// fileNum, which readers must also accept per spec.md §6.
func TableFilenameLegacy(dbDir string, fileNum FileNum) string {
	return fmt.Sprintf("%s/%06d.sst", dbDir, uint64(fileNum))
}

// LogFilename returns the WAL filename for the given log number.
func LogFilename(dbDir string, logNum FileNum) string {
	return fmt.Sprintf("%s/%06d.log", dbDir, uint64(logNum))
}

// EncodeFileNum encodes a file number as an 8-byte little-endian cache
// key. Both the table cache and the block cache use this same encoding
// (spec.md §9's open question: the convention must be fixed once and
// shared between both caches).
func EncodeFileNum(dst []byte, n FileNum) []byte {
	return EncodeFixed64(dst, uint64(n))
}
