package base

import "bytes"

// Compare mirrors the three-way comparator shape used throughout the
// teacher (db.Compare / base.Compare): negative if a < b, zero if equal,
// positive if a > b.
type Compare func(a, b []byte) int

// Comparer bundles a user-key comparator with the two key-shortening
// operations the SST writer uses to keep index-block separators small.
// Implementations must satisfy: for a < b, Compare(a, b) < 0; for all a,
// Compare(a, a) == 0.
type Comparer struct {
	// Name identifies the comparator on disk (recorded in the properties
	// block by a full implementation; unused by the CORE but kept so a
	// table cannot silently be read with an incompatible comparator).
	Name string

	// Compare orders two user keys.
	Compare Compare

	// Equal reports whether two user keys are equal. Separated from
	// Compare so an implementation can special-case equality cheaply.
	Equal func(a, b []byte) bool

	// Separator appends a short key, no greater than limit and at least
	// as great as start (in user-key order), to dst and returns the
	// extended slice. If no shorter separator exists it returns dst
	// unmodified relative to start (signalled by returning nil).
	Separator func(dst, start, limit []byte) []byte

	// Successor appends a short key at least as great as key to dst and
	// returns the extended slice, or nil if no shorter successor exists.
	Successor func(dst, key []byte) []byte
}

// DefaultComparer is byte-wise lexicographic, matching spec.md's default
// user-key ordering and the teacher's bytes.Compare-based comparer.
var DefaultComparer = &Comparer{
	Name:    "leveldb.BytewiseComparator",
	Compare: bytes.Compare,
	Equal:   bytes.Equal,
	Separator: func(dst, start, limit []byte) []byte {
		index := sharedPrefixLen(start, limit)
		if index >= len(start) || index >= len(limit) {
			// One is a prefix of the other; no shorter separator exists.
			return nil
		}
		if start[index] >= limit[index] {
			return nil
		}
		n := index + 1
		result := append(dst, start[:n]...)
		result[len(result)-1]++
		return result
	},
	Successor: func(dst, key []byte) []byte {
		for i := 0; i < len(key); i++ {
			if b := key[i]; b != 0xff {
				result := append(dst, key[:i+1]...)
				result[len(result)-1]++
				return result
			}
		}
		// key is all 0xff bytes (or empty): no shorter successor.
		return nil
	},
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
