package strategy

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/logging"
)

// Differential copies files modified after the last full backup's marker.
// It never writes the marker, so consecutive differential runs all compare
// against the same full backup.
type Differential struct {
	fs    fs.FS
	log   logging.Logger
	clock clock.Clock
}

func NewDifferential(filesystem fs.FS, log logging.Logger) *Differential {
	filesystem, log = defaults(filesystem, log)
	return &Differential{fs: filesystem, log: log, clock: clock.WallClock}
}

// WithClock sets the clock used to time transfers.
func (d *Differential) WithClock(c clock.Clock) *Differential {
	d.clock = c
	return d
}

func (d *Differential) Name() string { return NameDifferential }

func (d *Differential) Execute(ctx context.Context, source, destination string, hooks Hooks) error {
	cutoff, ok, err := ReadMarker(d.fs, destination)
	if err != nil {
		// An unreadable marker copies everything rather than skipping files.
		d.log.Warn("differential backup of %s: %v; copying all files", source, err)
		cutoff, ok = time.Time{}, false
	}
	if !ok {
		d.log.Info("differential backup of %s: no full backup marker, copying all files", source)
	}

	files, err := enumerate(d.fs, source)
	if err != nil {
		d.log.Error("differential backup of %s: %v", source, err)
		return errors.Trace(err)
	}

	changed := files[:0]
	for _, f := range files {
		if f.MTime.After(cutoff) {
			changed = append(changed, f)
		}
	}
	d.log.Debug("differential backup: %d of %d files changed since %s", len(changed), len(files), cutoff.Format(time.RFC3339))

	if err := d.fs.MkdirAll(destination); err != nil {
		d.log.Error("creating destination %s: %v", destination, err)
		return errors.Annotatef(err, "creating destination %s", destination)
	}
	return mirror(ctx, d.fs, d.log, d.clock, changed, destination, hooks)
}
