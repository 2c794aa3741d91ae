package watcher

import "github.com/raoulx24/tree-archiver/internal/config"

// UpdateConfig applies new reload settings. Interval and debounce changes
// take effect on the next tick or event; a method change needs a restart.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Method != w.method {
		w.log.Info("config reload method change %q -> %q applies after restart", w.method, cfg.Method)
	}
	if cfg.PollInterval > 0 {
		w.interval = cfg.PollInterval
	}
	w.debounce = cfg.DebounceWindow
}
