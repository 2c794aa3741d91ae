package strategy

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/logging"
)

// Full copies every file under source and then writes the marker.
type Full struct {
	fs    fs.FS
	log   logging.Logger
	clock clock.Clock
}

func NewFull(filesystem fs.FS, log logging.Logger) *Full {
	filesystem, log = defaults(filesystem, log)
	return &Full{fs: filesystem, log: log, clock: clock.WallClock}
}

// WithClock sets the clock used to stamp the marker and time transfers.
func (f *Full) WithClock(c clock.Clock) *Full {
	f.clock = c
	return f
}

func (f *Full) Name() string { return NameFull }

func (f *Full) Execute(ctx context.Context, source, destination string, hooks Hooks) error {
	files, err := enumerate(f.fs, source)
	if err != nil {
		f.log.Error("full backup of %s: %v", source, err)
		return errors.Trace(err)
	}
	f.log.Debug("full backup: %d files from %s to %s", len(files), source, destination)

	if err := f.fs.MkdirAll(destination); err != nil {
		f.log.Error("creating destination %s: %v", destination, err)
		return errors.Annotatef(err, "creating destination %s", destination)
	}
	if err := mirror(ctx, f.fs, f.log, f.clock, files, destination, hooks); err != nil {
		return err
	}

	if err := WriteMarker(f.fs, destination, f.clock.Now()); err != nil {
		f.log.Error("%v", err)
		return errors.Trace(err)
	}
	return nil
}
