package watcher

import "github.com/raoulx24/tree-archiver/internal/config"

// detect reloads the config file if it changed since the last look.
func (w *Watcher) detect() {
	w.mu.RLock()
	path := w.path
	lastMod, lastSize := w.lastMod, w.lastSize
	w.mu.RUnlock()

	info, err := w.fs.Stat(path)
	if err != nil {
		w.log.Debug("config file %s not readable: %v", path, err)
		return
	}
	if info.MTime.Equal(lastMod) && info.Size == lastSize {
		return
	}

	// Record the change before parsing so a broken file is reported once.
	w.mu.Lock()
	w.lastMod, w.lastSize = info.MTime, info.Size
	w.mu.Unlock()

	cfg, err := config.Load(path)
	if err != nil {
		w.log.Error("config reload failed, keeping current config: %v", err)
		return
	}
	w.log.Info("config file %s changed, %d jobs", path, len(cfg.Jobs))
	w.mb.Put(cfg)
}
