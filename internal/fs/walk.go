package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/logging"
)

// walkFiles lists the regular files below root. Symlinks to regular files
// are listed with their target's size and mtime; symlinked directories are
// not followed. Anything else left out is logged.
func walkFiles(root string, log logging.Logger) ([]FileInfo, error) {
	if log == nil {
		log = logging.Discard{}
	}
	st, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Annotatef(ErrSourceMissing, "%s", root)
		}
		return nil, errors.Trace(err)
	}
	if !st.IsDir() {
		return nil, errors.Annotatef(ErrSourceMissing, "%s is not a directory", root)
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		var info os.FileInfo
		switch mode := d.Type(); {
		case d.IsDir():
			return nil
		case mode.IsRegular():
			if info, err = d.Info(); err != nil {
				return err
			}
		case mode&fs.ModeSymlink != 0:
			target, err := os.Stat(path)
			if err != nil {
				log.Warn("skipping broken symlink %s: %v", path, err)
				return nil
			}
			if !target.Mode().IsRegular() {
				log.Warn("skipping symlink %s: target is not a regular file", path)
				return nil
			}
			info = target
		default:
			log.Warn("skipping %s: not a regular file (%s)", path, mode)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:  path,
			Rel:   rel,
			Size:  info.Size(),
			MTime: info.ModTime(),
			Inode: inodeOf(info),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Annotatef(err, "walking %s", root)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}
