package strategy

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/fs"
)

// MarkerName is the file under a destination root that records the time of
// the last successful full backup.
const MarkerName = ".backup_metadata"

func markerPath(destination string) string {
	return filepath.Join(destination, MarkerName)
}

// ReadMarker returns the recorded full-backup time. ok is false when no
// marker exists, which is a normal state.
func ReadMarker(filesystem fs.FS, destination string) (ts time.Time, ok bool, err error) {
	path := markerPath(destination)
	if !filesystem.Exists(path) {
		return time.Time{}, false, nil
	}
	data, err := filesystem.ReadFile(path)
	if err != nil {
		return time.Time{}, false, errors.Annotatef(err, "reading marker %s", path)
	}
	ts, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false, errors.NotValidf("marker %s content %q", path, strings.TrimSpace(string(data)))
	}
	return ts, true, nil
}

// WriteMarker records ts as the last full-backup time.
func WriteMarker(filesystem fs.FS, destination string, ts time.Time) error {
	path := markerPath(destination)
	if err := filesystem.WriteFile(path, []byte(ts.UTC().Format(time.RFC3339Nano)+"\n")); err != nil {
		return errors.Annotatef(err, "writing marker %s", path)
	}
	return nil
}
