package lsmcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvstore/lsmcore/bloom"
	"github.com/kvstore/lsmcore/internal/base"
	"github.com/kvstore/lsmcore/sstable"
)

func TestEnsureDefaults(t *testing.T) {
	opts := Options{}.EnsureDefaults()
	require.Equal(t, base.DefaultComparer, opts.Comparer)
	require.Equal(t, 4096, opts.BlockSize)
	require.Equal(t, 16, opts.BlockRestartInterval)
	require.Equal(t, 1000, opts.MaxOpenFiles)
}

func TestEnsureDefaultsPreservesSetFields(t *testing.T) {
	custom := &base.Comparer{Name: "custom"}
	opts := Options{Comparer: custom, BlockSize: 8192}.EnsureDefaults()
	require.Same(t, custom, opts.Comparer)
	require.Equal(t, 8192, opts.BlockSize)
	require.Equal(t, 16, opts.BlockRestartInterval)
}

func TestWriterOptionsProjectsFilterBits(t *testing.T) {
	opts := Options{FilterPolicy: bloom.NewPolicy(10)}.EnsureDefaults()
	wo := opts.WriterOptions()
	require.Equal(t, 10, wo.FilterBitsPerKey)
	require.Equal(t, sstable.CompressionNone, wo.Compression)
}

func TestReaderOptionsMergesParanoidChecks(t *testing.T) {
	opts := Options{ParanoidChecks: true}.EnsureDefaults()
	ro := opts.ReaderOptions(ReadOptions{})
	require.True(t, ro.VerifyChecksums)

	opts2 := Options{}.EnsureDefaults()
	ro2 := opts2.ReaderOptions(ReadOptions{VerifyChecksums: true})
	require.True(t, ro2.VerifyChecksums)

	ro3 := opts2.ReaderOptions(ReadOptions{})
	require.False(t, ro3.VerifyChecksums)
}
