// Package fsprobe checks whether fsnotify delivers events for a directory.
// It writes and renames a scratch file and waits for the watcher to see it,
// since some network and container filesystems accept a watch but never
// report anything.
package fsprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// DefaultTimeout is how long Probe waits for the first event.
const DefaultTimeout = 200 * time.Millisecond

// Result reports whether fsnotify is usable and why not.
type Result struct {
	FsnotifySupported bool
	Reason            string
}

func unsupported(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Probe tests whether fsnotify reports a rename in dir within timeout. A
// zero timeout uses DefaultTimeout.
func Probe(dir string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	st, err := os.Stat(dir)
	if err != nil {
		return unsupported("stat failed: %v", err)
	}
	if !st.IsDir() {
		return unsupported("%s is not a directory", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return unsupported("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return unsupported("cannot watch %s: %v", dir, err)
	}

	// Unique names so probes of the same directory never collide.
	id := uuid.NewString()
	tmp := filepath.Join(dir, ".probe-"+id+".tmp")
	final := filepath.Join(dir, ".probe-"+id)

	if err := os.WriteFile(tmp, []byte(id), 0o600); err != nil {
		return unsupported("cannot create probe file: %v", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return unsupported("rename failed: %v", err)
	}
	defer os.Remove(final)

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return unsupported("event channel closed")
			}
			if filepath.Base(ev.Name) == filepath.Base(final) || filepath.Base(ev.Name) == filepath.Base(tmp) {
				return Result{FsnotifySupported: true}
			}
		case err, ok := <-w.Errors:
			if ok {
				return unsupported("watcher error: %v", err)
			}
		case <-deadline:
			return unsupported("no events received within %s", timeout)
		}
	}
}
