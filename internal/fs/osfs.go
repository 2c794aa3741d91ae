package fs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/logging"
)

// OSFS is the concrete implementation of FS backed by the local OS filesystem.
// Platform-specific details (such as inode extraction) are handled in build-tagged files.
type OSFS struct {
	log logging.Logger
}

func New() *OSFS {
	return &OSFS{log: logging.Discard{}}
}

// WithLogger sets the logger that reports entries a walk leaves out.
func (o *OSFS) WithLogger(log logging.Logger) *OSFS {
	o.log = log
	return o
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Inode: inodeOf(st),
		IsDir: st.IsDir(),
	}, nil
}

func (o *OSFS) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func (o *OSFS) DirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func (o *OSFS) ModTime(path string) (time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.Trace(err)
	}
	return st.ModTime(), nil
}

func (o *OSFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// CreateFile creates an empty file, truncating any existing one.
func (o *OSFS) CreateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	return f.Close()
}

func (o *OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes through a temporary sibling and renames it into place.
func (o *OSFS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Trace(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Trace(err)
	}
	if err := o.Rename(context.Background(), tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Trace(err)
	}
	return nil
}

func (o *OSFS) Remove(path string) error {
	return os.Remove(path)
}

func (o *OSFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Rename retries transient failures, which on Windows include a target held
// open by a scanner or indexer.
func (o *OSFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return withRetry(ctx, "rename "+filepath.Base(oldPath), func() error {
		return os.Rename(oldPath, newPath)
	})
}

func (o *OSFS) Walk(root string) ([]FileInfo, error) {
	return walkFiles(root, o.log)
}

func (o *OSFS) CopyFile(ctx context.Context, src, dst string, progress ProgressFunc) error {
	return copyWithRetry(ctx, o, src, dst, progress)
}

func (o *OSFS) CopyDir(ctx context.Context, src, dst string, progress ProgressFunc) error {
	return copyDir(ctx, o, src, dst, progress)
}
