package base

import "cmp"

// InternalKeyKind distinguishes a live value from a tombstone. Only two
// kinds exist at this layer; everything else (merges, range deletions,
// column families) belongs to the DB façade this module does not
// implement.
type InternalKeyKind uint8

const (
	// InternalKeyKindDeletion marks a user key as removed as of its
	// sequence number. It carries no value bytes.
	InternalKeyKindDeletion InternalKeyKind = 0
	// InternalKeyKindSet is a live value.
	InternalKeyKindSet InternalKeyKind = 1

	// InternalKeyKindMax is the largest defined kind; parse fails above it.
	InternalKeyKindMax = InternalKeyKindSet

	// InternalKeyKindSeek (called SEEK_TYPE in spec.md §4.2) is the kind
	// value used to construct internal search keys that must sort before
	// every real entry sharing the same user key and sequence: because
	// the sequence|kind tail is compared in descending numeric order, the
	// maximum defined kind produces the maximum tail, and the maximum
	// tail sorts first.
	InternalKeyKindSeek = InternalKeyKindSet
)

// MaxSeqNum is the largest representable sequence number: 56 bits of
// monotonically increasing counter, per spec.md §3.
const MaxSeqNum = uint64(1)<<56 - 1

// trailerSize is the width, in bytes, of the packed (sequence, kind) tail
// appended to every user key.
const trailerSize = 8

// packTrailer packs a sequence number and kind into the 8-byte tail.
func packTrailer(seqNum uint64, kind InternalKeyKind) uint64 {
	return seqNum<<8 | uint64(kind)
}

func unpackTrailer(trailer uint64) (seqNum uint64, kind InternalKeyKind) {
	return trailer >> 8, InternalKeyKind(trailer & 0xff)
}

// InternalKey is the engine's primary key: a user key together with the
// sequence number and kind that was packed onto it at write time.
type InternalKey struct {
	UserKey []byte
	SeqNum  uint64
	Kind    InternalKeyKind
}

// MakeInternalKey constructs an InternalKey with the given fields.
func MakeInternalKey(userKey []byte, seqNum uint64, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, SeqNum: seqNum, Kind: kind}
}

// MakeSearchKey builds an internal key suitable for seeking: the
// maximum possible tail for the given user key, so that SeekGE against a
// comparator using InternalCompare lands on the first (freshest) real
// entry for that user key regardless of its actual sequence number.
func MakeSearchKey(userKey []byte) InternalKey {
	return InternalKey{UserKey: userKey, SeqNum: MaxSeqNum, Kind: InternalKeyKindSeek}
}

// Size returns the encoded length of k.
func (k InternalKey) Size() int {
	return len(k.UserKey) + trailerSize
}

// Encode writes the encoded form of k into buf, which must be exactly
// k.Size() bytes.
func (k InternalKey) Encode(buf []byte) {
	n := copy(buf, k.UserKey)
	trailer := packTrailer(k.SeqNum, k.Kind)
	copy(buf[n:n+trailerSize], EncodeFixed64(nil, trailer))
}

// EncodeAppend appends the encoded form of k to dst and returns the
// extended slice.
func (k InternalKey) EncodeAppend(dst []byte) []byte {
	dst = append(dst, k.UserKey...)
	return EncodeFixed64(dst, packTrailer(k.SeqNum, k.Kind))
}

// DecodeInternalKey parses b (exactly as produced by Encode/EncodeAppend)
// into an InternalKey. The returned UserKey aliases b. DecodeInternalKey
// never panics; on malformed input (len(b) < 8, or a kind above
// InternalKeyKindMax) it returns the zero InternalKey and ok=false.
func DecodeInternalKey(b []byte) (InternalKey, bool) {
	if len(b) < trailerSize {
		return InternalKey{}, false
	}
	n := len(b) - trailerSize
	trailer := DecodeFixed64(b[n:])
	seqNum, kind := unpackTrailer(trailer)
	if kind > InternalKeyKindMax {
		return InternalKey{}, false
	}
	return InternalKey{UserKey: b[:n], SeqNum: seqNum, Kind: kind}, true
}

// ExtractUserKey returns the user-key prefix of an encoded internal key
// without validating or decoding the trailer.
func ExtractUserKey(b []byte) []byte {
	if len(b) < trailerSize {
		return b
	}
	return b[:len(b)-trailerSize]
}

// InternalCompare orders two encoded internal keys: first by user key
// (ascending, per the supplied user comparator), then — for equal user
// keys — by the packed (sequence, kind) tail in descending numeric order,
// so that a newer write (higher sequence) sorts strictly before an older
// one for the same user key.
func InternalCompare(userCmp Compare, a, b []byte) int {
	an, bn := len(a)-trailerSize, len(b)-trailerSize
	if an < 0 || bn < 0 {
		// Malformed keys compare by raw bytes; callers are expected to have
		// validated lengths already (spec.md invariant: encoded keys are
		// always >= 8 bytes).
		return bytesCompare(a, b)
	}
	if c := userCmp(a[:an], b[:bn]); c != 0 {
		return c
	}
	at, bt := DecodeFixed64(a[an:]), DecodeFixed64(b[bn:])
	return cmp.Compare(bt, at) // descending: larger trailer sorts first
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmp.Compare(len(a), len(b))
}

// InternalKeyComparer adapts a user Comparer into a Compare over encoded
// internal keys, plus the two shortening operations the SST writer uses
// on index-block separators. Both shortening operations mutate only their
// first (dst) argument, per spec.md §9.
type InternalKeyComparer struct {
	UserComparer *Comparer
}

// Compare orders two encoded internal keys.
func (c InternalKeyComparer) Compare(a, b []byte) int {
	return InternalCompare(c.UserComparer.Compare, a, b)
}

// Separator computes a short internal key, `start <= result < limit`,
// by shortening the user-key prefixes and re-tagging the result with the
// maximum tail for that user key so it remains < any real internal key
// sharing it. If the user comparator cannot shorten (one key is a prefix
// of the other, or the bytes are adjacent), the original start is
// returned unchanged.
func (c InternalKeyComparer) Separator(dst, start, limit []byte) []byte {
	startUser := ExtractUserKey(start)
	limitUser := ExtractUserKey(limit)
	sep := c.UserComparer.Separator(dst, startUser, limitUser)
	if sep == nil || len(sep) >= len(startUser) || c.UserComparer.Compare(sep, startUser) <= 0 {
		return append(dst[:0], start...)
	}
	return EncodeFixed64(sep, packTrailer(MaxSeqNum, InternalKeyKindSeek))
}

// Successor computes a short internal key >= key, analogous to
// Separator but for the final entry in a table (which has no upper
// bound to shorten against).
func (c InternalKeyComparer) Successor(dst, key []byte) []byte {
	keyUser := ExtractUserKey(key)
	succ := c.UserComparer.Successor(dst, keyUser)
	if succ == nil || len(succ) >= len(keyUser) {
		return append(dst[:0], key...)
	}
	return EncodeFixed64(succ, packTrailer(MaxSeqNum, InternalKeyKindSeek))
}
