// Package lsmcore wires internal/base, bloom, record, memtable, and
// sstable into the configuration surface spec.md §6 describes, the way
// the teacher's root package bundles its component packages behind one
// Options struct.
package lsmcore

import (
	"github.com/kvstore/lsmcore/bloom"
	"github.com/kvstore/lsmcore/internal/base"
	"github.com/kvstore/lsmcore/internal/cache"
	"github.com/kvstore/lsmcore/sstable"
)

// Options collects every knob spec.md §6 names for the storage engine
// CORE. EnsureDefaults fills in the zero-value comparer and sizing
// fields, following the teacher's Options.EnsureDefaults method shape.
type Options struct {
	// Comparer orders user keys. Defaults to byte-wise lexicographic
	// ordering.
	Comparer *base.Comparer

	// FilterPolicy builds the bloom filter block sstable.Writer attaches
	// to each table. A nil policy disables filter blocks.
	FilterPolicy *bloom.Policy

	// Cache is the shared block cache every table Reader consults,
	// sized in number of blocks (spec.md §4.6 leaves byte-accounting out
	// of scope for the CORE).
	Cache *cache.BlockCache[[]byte]

	// BlockSize is the target uncompressed size, in bytes, of a data
	// block before sstable.Writer flushes it.
	BlockSize int

	// BlockRestartInterval is the number of entries between restart
	// points in a data block.
	BlockRestartInterval int

	// MaxFileSize bounds how many bytes a table-building caller should
	// write to one SST before starting a new one. The CORE's
	// sstable.Writer itself is agnostic to file count; this knob exists
	// for a host's table-building loop.
	MaxFileSize int64

	// Compression selects the block compression scheme new tables are
	// written with.
	Compression sstable.Compression

	// ParanoidChecks, when true, verifies block checksums on every read
	// rather than trusting the OS page cache, matching ReadOptions'
	// per-call VerifyChecksums but applied as the engine-wide default.
	ParanoidChecks bool

	// MaxOpenFiles bounds the table cache's capacity (one slot per open
	// SST file descriptor).
	MaxOpenFiles int
}

// EnsureDefaults returns a copy of o with zero-value Comparer, BlockSize,
// BlockRestartInterval, MaxFileSize and MaxOpenFiles filled in, leaving
// already-set fields untouched. FilterPolicy, Cache, Compression and
// ParanoidChecks are copied as given.
func (o Options) EnsureDefaults() *Options {
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 2 << 20
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = 1000
	}
	return &o
}

// WriterOptions projects the subset of Options that sstable.Writer
// needs, letting a host share one Options value across every table it
// builds.
func (o *Options) WriterOptions() sstable.WriterOptions {
	bits := 0
	if o.FilterPolicy != nil {
		bits = o.FilterPolicy.BitsPerKey()
	}
	return sstable.WriterOptions{
		Comparer:             o.Comparer,
		BlockSize:            o.BlockSize,
		BlockRestartInterval: o.BlockRestartInterval,
		FilterBitsPerKey:     bits,
		Compression:          o.Compression,
	}
}

// ReaderOptions projects the subset of Options that sstable.Reader
// needs for a single Open call, merged with the per-call overrides in
// ReadOptions.
func (o *Options) ReaderOptions(ro ReadOptions) sstable.ReaderOptions {
	return sstable.ReaderOptions{
		Comparer:        o.Comparer,
		VerifyChecksums: ro.VerifyChecksums || o.ParanoidChecks,
		BlockCache:      o.Cache,
	}
}

// ReadOptions carries per-call read knobs, distinct from the
// engine-wide Options because they legitimately vary from one read to
// the next (a backup scan wants VerifyChecksums; a hot-path point
// lookup doesn't).
type ReadOptions struct {
	// VerifyChecksums forces block checksum verification for this read,
	// regardless of Options.ParanoidChecks.
	VerifyChecksums bool

	// FillCache controls whether blocks touched by this read are
	// inserted into Options.Cache. Bulk scans (e.g. a full compaction
	// read, out of scope here but anticipated by a host) typically set
	// this false to avoid evicting hotter blocks.
	FillCache bool

	// Snapshot pins reads to a fixed sequence number, per spec.md §4.2's
	// MVCC visibility rule: a read with Snapshot set only sees writes
	// with SeqNum <= Snapshot. Zero means "read the latest state."
	Snapshot uint64
}
