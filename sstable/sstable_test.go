package sstable

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvstore/lsmcore/internal/base"
	"github.com/kvstore/lsmcore/internal/cache"
)

type memFile struct {
	buf bytes.Buffer
}

func (m *memFile) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memFile) Close() error                { return nil }
func (m *memFile) Sync() error                 { return nil }

type memRandomAccessFile struct {
	data []byte
}

func (m *memRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("sstable test: offset %d out of range", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("sstable test: short read")
	}
	return n, nil
}
func (m *memRandomAccessFile) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memRandomAccessFile) Close() error         { return nil }

// testKey zero-pads i to a fixed width so ascending numeric order and
// ascending byte-wise order coincide (Writer.Add requires its caller to
// present keys in ascending internal-key order).
func testKey(i int) string { return fmt.Sprintf("k%04d", i) }

func buildTable(t *testing.T, n int, opts WriterOptions) []byte {
	t.Helper()
	f := &memFile{}
	w := NewWriter(f, opts)
	for i := 1; i <= n; i++ {
		val := fmt.Sprintf("v%d", i)
		ik := base.MakeInternalKey([]byte(testKey(i)), uint64(i), base.InternalKeyKindSet)
		require.NoError(t, w.Add(ik, []byte(val)))
	}
	require.NoError(t, w.Finish())
	return f.buf.Bytes()
}

// TestBlockIterRoundTrip is spec.md's property 7: writing ordered pairs
// to a block builder and reading them back via a block iterator yields
// the same sequence.
func TestBlockIterRoundTrip(t *testing.T) {
	bw := newBlockWriter(4)
	var keys []base.InternalKey
	for i := 0; i < 50; i++ {
		ik := base.MakeInternalKey([]byte(fmt.Sprintf("key%03d", i)), uint64(100-i), base.InternalKeyKindSet)
		bw.add(ik, []byte(fmt.Sprintf("val%03d", i)))
		keys = append(keys, ik)
	}
	body := bw.finish()

	it, err := newBlockIter(base.DefaultComparer.Compare, body)
	require.NoError(t, err)
	require.True(t, it.First())
	for i := 0; i < 50; i++ {
		require.True(t, it.Valid())
		require.Equal(t, string(keys[i].UserKey), string(it.Key().UserKey))
		require.Equal(t, keys[i].SeqNum, it.Key().SeqNum)
		require.Equal(t, fmt.Sprintf("val%03d", i), string(it.Value()))
		if i < 49 {
			require.True(t, it.Next())
		} else {
			require.False(t, it.Next())
		}
	}

	it2, err := newBlockIter(base.DefaultComparer.Compare, body)
	require.NoError(t, err)
	require.True(t, it2.SeekGE([]byte("key025")))
	require.Equal(t, "key025", string(it2.Key().UserKey))
}

// TestTableOpenRoundTrip is spec.md's property 10 and scenario S5: build
// an SST from 1000 ordered pairs with a 10-bit bloom filter; point
// lookups and full iteration must reproduce the original stream.
func TestTableOpenRoundTrip(t *testing.T) {
	data := buildTable(t, 1000, WriterOptions{FilterBitsPerKey: 10})
	f := &memRandomAccessFile{data: data}
	r, err := Open(f, int64(len(data)), ReaderOptions{VerifyChecksums: true})
	require.NoError(t, err)

	var gotValue []byte
	found := false
	err = r.InternalGet([]byte(testKey(500)), true, func(key base.InternalKey, value []byte) {
		found = true
		gotValue = append([]byte(nil), value...)
	})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v500", string(gotValue))

	found = false
	err = r.InternalGet([]byte("zzz"), true, func(key base.InternalKey, value []byte) {
		found = true
	})
	require.NoError(t, err)
	require.False(t, found)

	it, err := r.NewIter(true)
	require.NoError(t, err)
	count := 0
	for ok := it.First(); ok; ok = it.Next() {
		count++
		require.Equal(t, testKey(count), string(it.Key().UserKey))
		require.Equal(t, fmt.Sprintf("v%d", count), string(it.Value()))
	}
	require.NoError(t, it.Error())
	require.Equal(t, 1000, count)
}

func TestTableOpenEmptyMiss(t *testing.T) {
	data := buildTable(t, 10, WriterOptions{FilterBitsPerKey: 10})
	f := &memRandomAccessFile{data: data}
	r, err := Open(f, int64(len(data)), ReaderOptions{})
	require.NoError(t, err)

	found := false
	err = r.InternalGet([]byte("nonexistent"), false, func(base.InternalKey, []byte) { found = true })
	require.NoError(t, err)
	require.False(t, found)
}

// TestTableOpenMultiBlockFilterRoundTrip is the review-requested
// regression for the filter-alignment and filter-block-trailer bugs: it
// forces many small data blocks (a tiny BlockSize) so the table spans
// several bloom filter regions, opens with both VerifyChecksums and a
// shared block cache active, and checks every key — present and absent —
// against the loaded filter.
func TestTableOpenMultiBlockFilterRoundTrip(t *testing.T) {
	const n = 500
	data := buildTable(t, n, WriterOptions{FilterBitsPerKey: 10, BlockSize: 256})
	f := &memRandomAccessFile{data: data}
	blockCache := cache.NewBlockCache[[]byte](64)
	r, err := Open(f, int64(len(data)), ReaderOptions{VerifyChecksums: true, BlockCache: blockCache})
	require.NoError(t, err)
	require.NotNil(t, r.filter, "filter block must have loaded")

	for i := 1; i <= n; i++ {
		found := false
		var gotValue []byte
		err := r.InternalGet([]byte(testKey(i)), true, func(key base.InternalKey, value []byte) {
			found = true
			gotValue = append([]byte(nil), value...)
		})
		require.NoError(t, err)
		require.True(t, found, "key %s should be found", testKey(i))
		require.Equal(t, fmt.Sprintf("v%d", i), string(gotValue))
	}

	for _, missing := range []string{"k0000", "k9999", "zzzz"} {
		found := false
		err := r.InternalGet([]byte(missing), true, func(base.InternalKey, []byte) { found = true })
		require.NoError(t, err)
		require.False(t, found)
	}

	it, err := r.NewIter(true)
	require.NoError(t, err)
	count := 0
	for ok := it.First(); ok; ok = it.Next() {
		count++
		require.Equal(t, testKey(count), string(it.Key().UserKey))
	}
	require.NoError(t, it.Error())
	require.Equal(t, n, count)
}

func TestTableCompressedRoundTrip(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, WriterOptions{Compression: CompressionSnappy})
	for i := 1; i <= 200; i++ {
		ik := base.MakeInternalKey([]byte(fmt.Sprintf("k%04d", i)), uint64(i), base.InternalKeyKindSet)
		require.NoError(t, w.Add(ik, bytes.Repeat([]byte("x"), 40)))
	}
	require.NoError(t, w.Finish())

	data := f.buf.Bytes()
	raf := &memRandomAccessFile{data: data}
	r, err := Open(raf, int64(len(data)), ReaderOptions{VerifyChecksums: true})
	require.NoError(t, err)

	found := false
	err = r.InternalGet([]byte("k0100"), false, func(key base.InternalKey, value []byte) {
		found = true
		require.Equal(t, bytes.Repeat([]byte("x"), 40), value)
	})
	require.NoError(t, err)
	require.True(t, found)
}
