package base

import (
	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by lookups that find no entry for a key, either
// because a memtable/table genuinely lacks it or because the freshest
// visible version is a deletion tombstone.
var ErrNotFound = errors.New("lsmcore: not found")

// corruptionMark is a zero-value sentinel used purely as an errors.Mark
// target so that CRC mismatches, bad restart points, and malformed block
// trailers can all be distinguished from plain I/O errors with
// errors.Is(err, ErrCorruption), without each call site inventing its own
// sentinel.
var corruptionMark = errors.New("lsmcore: corruption")

// ErrCorruption is the marker sentinel for on-disk corruption. Use
// errors.Is(err, ErrCorruption) to test for it.
var ErrCorruption = corruptionMark

// CorruptionErrorf builds a corruption error with a formatted message,
// marked so that errors.Is(err, ErrCorruption) succeeds. Mirrors the
// teacher's base.CorruptionErrorf helper.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), corruptionMark)
}

// IsCorruptionError reports whether err (or one of its wrapped causes) is
// a corruption error produced by CorruptionErrorf.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}
