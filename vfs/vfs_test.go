package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvstore/lsmcore/internal/base"
)

func TestWritableFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "000001.log")

	w, err := Default.NewWritableFile(name)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	got, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestRandomAccessFileSize(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "000001.ldb")
	require.NoError(t, os.WriteFile(name, []byte("0123456789"), 0o644))

	f, err := Default.NewRandomAccessFile(name)
	require.NoError(t, err)
	defer f.Close()

	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(10), size)

	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 3)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "3456", string(buf))
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "gone.log")
	require.NoError(t, Default.Remove(name))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "000001.ldb")
	require.False(t, Default.FileExists(name))
	require.NoError(t, os.WriteFile(name, nil, 0o644))
	require.True(t, Default.FileExists(name))
}

func TestOpenTablePrefersLdbOverLegacySst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002.ldb"), []byte("ldb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002.sst"), []byte("sst"), 0o644))

	f, name, err := OpenTable(Default, dir, base.FileNum(2))
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, filepath.Join(dir, "000002.ldb"), name)
}

func TestOpenTableFallsBackToLegacySst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000003.sst"), []byte("sst"), 0o644))

	f, name, err := OpenTable(Default, dir, base.FileNum(3))
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, filepath.Join(dir, "000003.sst"), name)
}
