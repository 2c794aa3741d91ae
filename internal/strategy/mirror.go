package strategy

import (
	"context"
	"path/filepath"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/logging"
)

// enumerate lists the regular files under source, leaving out a marker at
// the source root. A missing source is reported as fs.ErrSourceMissing.
func enumerate(filesystem fs.FS, source string) ([]fs.FileInfo, error) {
	if !filesystem.DirExists(source) {
		return nil, errors.Annotatef(fs.ErrSourceMissing, "%s", source)
	}
	files, err := filesystem.Walk(source)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := files[:0]
	for _, f := range files {
		if f.Rel == MarkerName {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// mirror copies files to the same relative paths under destination,
// reporting progress over len(files).
func mirror(ctx context.Context, filesystem fs.FS, log logging.Logger, clk clock.Clock, files []fs.FileInfo, destination string, hooks Hooks) error {
	total := len(files)
	if total == 0 {
		hooks.progress(100)
		return nil
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(destination, f.Rel)
		if err := filesystem.MkdirAll(filepath.Dir(target)); err != nil {
			log.Error("creating directory for %s: %v", target, err)
			return errors.Annotatef(err, "creating directory for %s", target)
		}

		start := clk.Now()
		err := filesystem.CopyFile(ctx, f.Path, target, nil)
		hooks.transfer(Transfer{
			Source:  f.Path,
			Target:  target,
			Size:    f.Size,
			Elapsed: clk.Now().Sub(start),
			Err:     err,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error("copying %s -> %s: %v", f.Path, target, err)
			return errors.Annotatef(err, "copying %s", f.Rel)
		}

		hooks.progress((i + 1) * 100 / total)
	}
	return nil
}
