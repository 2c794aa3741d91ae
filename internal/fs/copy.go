package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// implements chunked file copying with retry and source-change detection.
// Cancellation is checked before every chunk, so a cancel against a large
// file is honoured within one chunk. Data goes to a hidden sibling that is
// renamed over dst once complete; an interrupted copy leaves dst as it was.

func partialPath(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".partial")
}

func copyWithRetry(ctx context.Context, f FS, src, dst string, progress ProgressFunc) error {
	orig, err := f.Stat(src)
	if err != nil {
		return errors.Trace(err)
	}
	if orig.IsDir {
		return errors.NotValidf("copy source %q is a directory", src)
	}

	if err := f.MkdirAll(filepath.Dir(dst)); err != nil {
		return errors.Annotatef(err, "creating directory for %s", dst)
	}

	// A retry starts the file again; callers only see forward movement, and
	// 100 only once dst is in place.
	last := -1
	forward := func(p int) {
		if p > last && p < 100 {
			last = p
			report(progress, p)
		}
	}

	tmp := partialPath(dst)
	err = withRetry(ctx, "copy", func() error {
		if err := copyOnce(ctx, src, tmp, orig.Size, forward); err != nil {
			return err
		}

		now, err := f.Stat(src)
		if err != nil {
			return err
		}
		if sourceChanged(orig, now) {
			orig = now
			return errSourceChanged
		}
		return nil
	})
	if err == nil {
		err = f.Rename(ctx, tmp, dst)
	}
	if err != nil {
		_ = f.Remove(tmp)
		return err
	}
	report(progress, 100)
	return nil
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	if now.Size != orig.Size {
		return true
	}
	return false
}

func copyOnce(ctx context.Context, src, dst string, size int64, progress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := copyChunks(ctx, in, out, size, progress); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func copyChunks(ctx context.Context, in io.Reader, out io.Writer, size int64, progress ProgressFunc) error {
	buf := make([]byte, ChunkSize)
	var written int64
	last := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return err
			}
			written += int64(n)
			if size > 0 {
				pct := int(min(written*100/size, 100))
				if pct != last {
					last = pct
					report(progress, pct)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if last != 100 {
		report(progress, 100)
	}
	return nil
}

func copyDir(ctx context.Context, f FS, src, dst string, progress ProgressFunc) error {
	files, err := f.Walk(src)
	if err != nil {
		return errors.Trace(err)
	}
	if err := f.MkdirAll(dst); err != nil {
		return errors.Annotatef(err, "creating %s", dst)
	}
	if len(files) == 0 {
		report(progress, 100)
		return nil
	}

	for i, fi := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.CopyFile(ctx, fi.Path, filepath.Join(dst, fi.Rel), nil); err != nil {
			return errors.Annotatef(err, "copying %s", fi.Rel)
		}
		report(progress, (i+1)*100/len(files))
	}
	return nil
}
