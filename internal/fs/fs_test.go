package fs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"
)

func writeFile(c *qt.C, path string, data []byte) {
	c.Assert(os.MkdirAll(filepath.Dir(path), 0o755), qt.IsNil)
	c.Assert(os.WriteFile(path, data, 0o644), qt.IsNil)
}

func TestCopyFileReportsProgress(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	data := bytes.Repeat([]byte("x"), 4*ChunkSize+17)
	writeFile(c, src, data)

	dst := filepath.Join(dir, "nested", "deeper", "dst.bin")
	var seen []int
	err := New().CopyFile(context.Background(), src, dst, func(p int) { seen = append(seen, p) })
	c.Assert(err, qt.IsNil)

	got, err := os.ReadFile(dst)
	c.Assert(err, qt.IsNil)
	c.Check(got, qt.DeepEquals, data)
	c.Assert(len(seen) >= 5, qt.IsTrue, qt.Commentf("progress %v", seen))
	c.Check(seen[len(seen)-1], qt.Equals, 100)
	for i := 1; i < len(seen); i++ {
		c.Check(seen[i] >= seen[i-1], qt.IsTrue)
	}
}

func TestCopyEmptyFile(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	writeFile(c, src, nil)

	var seen []int
	err := New().CopyFile(context.Background(), src, filepath.Join(dir, "out"), func(p int) { seen = append(seen, p) })
	c.Assert(err, qt.IsNil)
	c.Check(seen, qt.DeepEquals, []int{100})
}

func TestCopyFileCancelledMidFileKeepsPreviousCopy(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "big.bin")
	writeFile(c, src, bytes.Repeat([]byte("y"), 16*ChunkSize))
	dst := filepath.Join(dir, "big.copy")
	writeFile(c, dst, []byte("previous backup"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []int
	err := New().CopyFile(ctx, src, dst, func(p int) {
		seen = append(seen, p)
		cancel()
	})
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue, qt.Commentf("err %v", err))
	c.Check(seen, qt.HasLen, 1)

	got, err := os.ReadFile(dst)
	c.Assert(err, qt.IsNil)
	c.Check(string(got), qt.Equals, "previous backup")
	c.Check(New().Exists(partialPath(dst)), qt.IsFalse)
}

func TestCopyFileRetryKeepsProgressMonotonic(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "growing.bin")
	writeFile(c, src, bytes.Repeat([]byte("a"), 4*ChunkSize))
	dst := filepath.Join(dir, "growing.copy")

	// The first progress report appends to the source, so the first attempt
	// sees a changed source and the copy starts over.
	var seen []int
	grown := false
	err := New().CopyFile(context.Background(), src, dst, func(p int) {
		seen = append(seen, p)
		if !grown {
			grown = true
			fh, err := os.OpenFile(src, os.O_APPEND|os.O_WRONLY, 0o644)
			c.Assert(err, qt.IsNil)
			_, err = fh.Write(bytes.Repeat([]byte("b"), 4*ChunkSize))
			c.Assert(err, qt.IsNil)
			c.Assert(fh.Close(), qt.IsNil)
		}
	})
	c.Assert(err, qt.IsNil)

	got, err := os.ReadFile(dst)
	c.Assert(err, qt.IsNil)
	c.Check(len(got), qt.Equals, 8*ChunkSize)
	c.Assert(seen, qt.Not(qt.HasLen), 0)
	c.Check(seen[len(seen)-1], qt.Equals, 100)
	for i := 1; i < len(seen); i++ {
		c.Check(seen[i] > seen[i-1], qt.IsTrue, qt.Commentf("progress %v", seen))
	}
	c.Check(New().Exists(partialPath(dst)), qt.IsFalse)
}

// countingFS records directory creation so copies can be checked to go
// through the adapter.
type countingFS struct {
	*OSFS
	mkdirs []string
}

func (f *countingFS) MkdirAll(path string) error {
	f.mkdirs = append(f.mkdirs, path)
	return f.OSFS.MkdirAll(path)
}

func TestCopyCreatesDirectoriesThroughAdapter(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	writeFile(c, src, []byte("x"))

	f := &countingFS{OSFS: New()}
	dst := filepath.Join(dir, "a", "b", "f")
	c.Assert(copyWithRetry(context.Background(), f, src, dst, nil), qt.IsNil)
	c.Check(f.mkdirs, qt.DeepEquals, []string{filepath.Join(dir, "a", "b")})
}

func TestCopyFileMissingSource(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	err := New().CopyFile(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"), nil)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Check(New().Exists(filepath.Join(dir, "out")), qt.IsFalse)
}

func TestWalk(t *testing.T) {
	c := qt.New(t)
	root := t.TempDir()
	writeFile(c, filepath.Join(root, "b.txt"), []byte("b"))
	writeFile(c, filepath.Join(root, "a", "z.txt"), []byte("z"))
	writeFile(c, filepath.Join(root, "a", "y", "x.txt"), []byte("x"))

	files, err := New().Walk(root)
	c.Assert(err, qt.IsNil)
	var rels []string
	for _, f := range files {
		rels = append(rels, filepath.ToSlash(f.Rel))
	}
	c.Check(rels, qt.DeepEquals, []string{"a/y/x.txt", "a/z.txt", "b.txt"})
}

func TestWalkMissingRoot(t *testing.T) {
	c := qt.New(t)
	_, err := New().Walk(filepath.Join(t.TempDir(), "gone"))
	c.Check(errors.Is(err, ErrSourceMissing), qt.IsTrue)
}

type warnings []string

func (w *warnings) Debug(string, ...any) {}
func (w *warnings) Info(string, ...any)  {}
func (w *warnings) Warn(msg string, args ...any) {
	*w = append(*w, fmt.Sprintf(msg, args...))
}
func (w *warnings) Error(string, ...any) {}

func symlink(c *qt.C, target, link string) {
	if err := os.Symlink(target, link); err != nil {
		c.Skipf("symlinks unavailable: %v", err)
	}
}

func TestWalkFollowsFileSymlinks(t *testing.T) {
	c := qt.New(t)
	outside := t.TempDir()
	writeFile(c, filepath.Join(outside, "real.txt"), []byte("linked content"))
	c.Assert(os.MkdirAll(filepath.Join(outside, "dir"), 0o755), qt.IsNil)

	root := t.TempDir()
	writeFile(c, filepath.Join(root, "a.txt"), []byte("a"))
	symlink(c, filepath.Join(outside, "real.txt"), filepath.Join(root, "link.txt"))
	symlink(c, filepath.Join(outside, "dir"), filepath.Join(root, "linkdir"))
	symlink(c, filepath.Join(outside, "gone"), filepath.Join(root, "broken"))

	var warned warnings
	files, err := New().WithLogger(&warned).Walk(root)
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.HasLen, 2)
	c.Check(files[0].Rel, qt.Equals, "a.txt")
	c.Check(files[1].Rel, qt.Equals, "link.txt")
	c.Check(files[1].Size, qt.Equals, int64(len("linked content")))

	c.Assert(warned, qt.HasLen, 2)
	c.Check(warned[0], qt.Matches, "skipping broken symlink .*broken: .*")
	c.Check(warned[1], qt.Matches, "skipping symlink .*linkdir: target is not a regular file")
}

func TestCopyDir(t *testing.T) {
	c := qt.New(t)
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "mirror")
	writeFile(c, filepath.Join(src, "one"), []byte("1"))
	writeFile(c, filepath.Join(src, "sub", "two"), []byte("22"))

	var last int
	c.Assert(New().CopyDir(context.Background(), src, dst, func(p int) { last = p }), qt.IsNil)
	c.Check(last, qt.Equals, 100)

	got, err := os.ReadFile(filepath.Join(dst, "sub", "two"))
	c.Assert(err, qt.IsNil)
	c.Check(string(got), qt.Equals, "22")
}

func TestFileOperations(t *testing.T) {
	c := qt.New(t)
	f := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "d", "marker")

	c.Check(f.Exists(path), qt.IsFalse)
	c.Assert(f.CreateFile(path), qt.IsNil)
	c.Check(f.Exists(path), qt.IsTrue)
	c.Check(f.DirExists(filepath.Join(dir, "d")), qt.IsTrue)
	c.Check(f.DirExists(path), qt.IsFalse)

	c.Assert(f.WriteFile(path, []byte("hello")), qt.IsNil)
	data, err := f.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Check(string(data), qt.Equals, "hello")
	c.Check(f.Exists(path+".tmp"), qt.IsFalse)

	_, err = f.ModTime(path)
	c.Check(err, qt.IsNil)

	c.Assert(f.Remove(path), qt.IsNil)
	c.Check(f.Exists(path), qt.IsFalse)
	c.Assert(f.RemoveAll(filepath.Join(dir, "d")), qt.IsNil)
	c.Check(f.DirExists(filepath.Join(dir, "d")), qt.IsFalse)
}

func TestRetryTransient(t *testing.T) {
	c := qt.New(t)
	calls := 0
	err := withRetry(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return syscall.EBUSY
		}
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Check(calls, qt.Equals, 3)
}

func TestRetryPermanent(t *testing.T) {
	c := qt.New(t)
	calls := 0
	err := withRetry(context.Background(), "op", func() error {
		calls++
		return syscall.EACCES
	})
	c.Assert(err, qt.ErrorMatches, "op failed permanently: .*")
	c.Check(calls, qt.Equals, 1)
	c.Check(errors.Is(err, syscall.EACCES), qt.IsTrue)
}

func TestRetryDoesNotRetryCancel(t *testing.T) {
	c := qt.New(t)
	calls := 0
	err := withRetry(context.Background(), "op", func() error {
		calls++
		return context.Canceled
	})
	c.Check(errors.Is(err, context.Canceled), qt.IsTrue)
	c.Check(calls, qt.Equals, 1)
}
