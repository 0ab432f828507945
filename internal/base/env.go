package base

import "io"

// This file names the small set of I/O collaborators the CORE depends on
// without owning. spec.md §1 treats filesystem portability ("Env") as an
// external collaborator with a named interface; a full virtual
// filesystem (mmap regions, directory listings, file locks) is out of
// scope, but the record and sstable packages still need *something* to
// read and write bytes through, so the minimal shapes are declared here.
// `vfs.Default` (package vfs) is the one concrete, os-backed
// implementation this module ships, used by tests and example wiring.

// SequentialFile is read forward-only, as the WAL reader requires.
type SequentialFile interface {
	io.Reader
	io.Closer
}

// RandomAccessFile supports the positional reads the SST reader issues.
type RandomAccessFile interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at off. It has the same contract
	// as io.ReaderAt.
	ReadAt(p []byte, off int64) (n int, err error)
	// Size returns the current length of the file.
	Size() (int64, error)
}

// WritableFile is append-only, as the WAL writer and SST writer require.
type WritableFile interface {
	io.Writer
	io.Closer
	Sync() error
}

// Env is the filesystem-portability seam named in spec.md §1: enough to
// open/create/remove/rename files and check whether a file exists. Everything else
// (locking, mmap, disk usage) belongs to the full vfs.FS a host would
// supply; this is the CORE's minimal subset.
type Env interface {
	NewSequentialFile(name string) (SequentialFile, error)
	NewRandomAccessFile(name string) (RandomAccessFile, error)
	NewWritableFile(name string) (WritableFile, error)
	Remove(name string) error
	Rename(oldname, newname string) error
	FileExists(name string) bool
}

// Logger is the minimal logging seam a host can inject. The CORE itself
// never logs unconditionally; components that want to surface a
// non-fatal anomaly take an EventListener instead (see events.go), but a
// Logger is kept here for parity with the teacher's base.Logger shape
// and for components (e.g. a standalone CLI) that just want a place to
// print diagnostics.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// NoopLogger discards everything. It is the default when no Logger is
// configured.
var NoopLogger Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Fatalf(format string, args ...interface{}) {}
