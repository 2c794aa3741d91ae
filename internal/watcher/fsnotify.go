package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// StartFsNotify runs detect once events for the config file have been quiet
// for the debounce window. The parent directory is watched because editors
// often replace the file by renaming over it.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Annotate(err, "creating fsnotify watcher")
	}
	defer watcher.Close()

	w.mu.RLock()
	path := w.path
	w.mu.RUnlock()
	name := filepath.Base(path)

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Annotatef(err, "watching %s", filepath.Dir(path))
	}

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				w.log.Error("fsnotify events channel closed")
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			w.log.Debug("config event %s on %s", ev.Op, ev.Name)

			w.mu.RLock()
			debounce := w.debounce
			w.mu.RUnlock()
			if timer != nil {
				timer.Stop()
			}
			timer = w.clock.AfterFunc(debounce, w.detect)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error: %v", err)
		}
	}
}
