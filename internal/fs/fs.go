// Package fs defines the filesystem abstraction used by tree-archiver.
// It provides the FS interface, the FileInfo type shared across the system
// and the OS-backed implementation with chunked, cancellable copies.
package fs

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// ErrSourceMissing is returned when a source directory does not exist.
// Callers check it before touching the destination.
const ErrSourceMissing = errors.ConstError("source directory missing")

// ChunkSize is the copy granularity; cancellation is checked once per chunk.
const ChunkSize = 64 * 1024

type FileInfo struct {
	Path  string // absolute or caller-relative path as walked
	Rel   string // path relative to the walk root, empty outside Walk
	Size  int64
	MTime time.Time
	Inode uint64
	IsDir bool
}

// ProgressFunc receives a cumulative percentage in [0, 100].
type ProgressFunc func(percent int)

type FS interface {
	Stat(path string) (FileInfo, error)
	Exists(path string) bool
	DirExists(path string) bool
	ModTime(path string) (time.Time, error)

	MkdirAll(path string) error
	CreateFile(path string) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Remove(path string) error
	RemoveAll(path string) error
	Rename(ctx context.Context, oldPath, newPath string) error

	// Walk returns every regular file below root, sorted by Rel.
	Walk(root string) ([]FileInfo, error)
	CopyFile(ctx context.Context, src, dst string, progress ProgressFunc) error
	CopyDir(ctx context.Context, src, dst string, progress ProgressFunc) error
}

func report(progress ProgressFunc, percent int) {
	if progress != nil {
		progress(percent)
	}
}
