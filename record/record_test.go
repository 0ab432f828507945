package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memFile is a minimal in-memory base.WritableFile + base.SequentialFile,
// enough to drive LogWriter/LogReader round trips without touching a
// real filesystem.
type memFile struct {
	buf bytes.Buffer
}

func (m *memFile) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memFile) Close() error                { return nil }
func (m *memFile) Sync() error                 { return nil }

type memReader struct {
	r *bytes.Reader
}

func (m *memReader) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memReader) Close() error               { return nil }

func writeAll(t *testing.T, payloads [][]byte) []byte {
	t.Helper()
	f := &memFile{}
	w := NewLogWriter(f)
	for _, p := range payloads {
		require.NoError(t, w.AddRecord(p))
	}
	require.NoError(t, w.Close())
	return f.buf.Bytes()
}

func readAll(t *testing.T, data []byte, opts ...Option) [][]byte {
	t.Helper()
	lr, err := NewLogReader(&memReader{r: bytes.NewReader(data)}, opts...)
	require.NoError(t, err)

	var got [][]byte
	for {
		rec, err := lr.ReadRecord(nil)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		cp := append([]byte{}, rec...)
		got = append(got, cp)
	}
	return got
}

// TestWALFraming is spec.md §8 property 8: any payload sequence written
// with AddRecord is read back identically by ReadRecord.
func TestWALFraming(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte("x"), 1000),
	}
	data := writeAll(t, payloads)
	got := readAll(t, data)

	require.Len(t, got, len(payloads))
	for i := range payloads {
		require.Equal(t, payloads[i], got[i])
	}
}

// TestWALRoundTripWithPadding is spec.md §8 scenario S3: three records of
// sizes 100, 40000, 10 must fragment across block boundaries and be
// recovered exactly.
func TestWALRoundTripWithPadding(t *testing.T) {
	payloads := [][]byte{
		bytes.Repeat([]byte("a"), 100),
		bytes.Repeat([]byte("b"), 40000),
		bytes.Repeat([]byte("c"), 10),
	}
	data := writeAll(t, payloads)
	got := readAll(t, data)

	require.Len(t, got, 3)
	for i := range payloads {
		require.Equal(t, payloads[i], got[i])
	}

	// The 40000-byte second record cannot fit in block 0, so the log
	// spans at least two blocks.
	require.True(t, len(data) >= BlockSize, "second record must force at least one more block")
}

// TestWALResyncOverCorruption: flipping bytes inside one physical
// fragment must not prevent recovery of records after it once the
// reader resynchronizes on the next physical record.
func TestWALResyncOverCorruption(t *testing.T) {
	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		[]byte("third"),
	}
	data := writeAll(t, payloads)

	// Corrupt the payload byte of the "second" record's fragment in
	// place without changing its length, so the corrupted fragment is
	// still framed correctly but its CRC no longer matches.
	idx := bytes.Index(data, []byte("second"))
	require.GreaterOrEqual(t, idx, 0)
	corrupted := append([]byte(nil), data...)
	corrupted[idx] ^= 0xff

	got := readAll(t, corrupted, WithVerifyChecksums(true))
	require.Equal(t, []byte("first"), got[0])
	require.Equal(t, []byte("third"), got[len(got)-1])
}

// TestWALRecoveryAtOffset is spec.md §8 property 9: opening a reader at
// initialOffset = k*BlockSize must never emit a record whose end byte
// precedes that offset.
func TestWALRecoveryAtOffset(t *testing.T) {
	payloads := make([][]byte, 0, 50)
	for i := 0; i < 50; i++ {
		payloads = append(payloads, bytes.Repeat([]byte{byte(i)}, 2000))
	}
	data := writeAll(t, payloads)
	require.Greater(t, len(data), 2*BlockSize)

	got := readAll(t, data, WithInitialOffset(int64(BlockSize)))
	// Every record recovered starting from block 1 must be a subset of
	// the full sequence, in order, with nothing from before the offset.
	full := readAll(t, data)
	require.LessOrEqual(t, len(got), len(full))
	if len(got) > 0 {
		// Whatever the first recovered record is, it must appear
		// somewhere in the full sequence (no spurious data).
		found := false
		for _, f := range full {
			if bytes.Equal(f, got[0]) {
				found = true
				break
			}
		}
		require.True(t, found)
	}
}

func TestWALEmptyLog(t *testing.T) {
	got := readAll(t, nil)
	require.Empty(t, got)
}
