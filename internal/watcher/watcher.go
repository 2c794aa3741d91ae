// Package watcher monitors the configuration file and hands each successfully
// reloaded configuration to the daemon through a mailbox.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/fsprobe"
	"github.com/raoulx24/tree-archiver/internal/logging"
	"github.com/raoulx24/tree-archiver/internal/mailbox"
)

// Watcher observes one config file and puts the parsed config into the
// mailbox whenever its modification time or size changes.
type Watcher struct {
	mu sync.RWMutex

	path     string
	method   string
	interval time.Duration
	debounce time.Duration

	fs    fs.FS
	log   logging.Logger
	clock clock.Clock

	lastMod  time.Time
	lastSize int64

	mb *mailbox.Mailbox[*config.Config]
}

// New creates a watcher for path. The file's current state is taken as
// already loaded.
func New(path string, cfg config.ReloadConfig, log logging.Logger, mb *mailbox.Mailbox[*config.Config]) *Watcher {
	w := &Watcher{
		path:     path,
		method:   cfg.Method,
		interval: cfg.PollInterval,
		debounce: cfg.DebounceWindow,
		fs:       fs.New(),
		log:      log,
		clock:    clock.WallClock,
		mb:       mb,
	}
	if info, err := w.fs.Stat(path); err == nil {
		w.lastMod, w.lastSize = info.MTime, info.Size
	}
	return w
}

// WithClock replaces the clock driving polling and debouncing.
func (w *Watcher) WithClock(c clock.Clock) *Watcher {
	w.clock = c
	return w
}

// Start runs the configured watching method until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	method := w.method
	w.mu.RUnlock()

	switch method {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "", "auto":
		res := fsprobe.Probe(filepath.Dir(w.path), 0)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled for %s: %s", w.path, res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return errors.NotValidf("config reload method %q", method)
	}
}
