package registry

import (
	"fmt"

	"github.com/raoulx24/tree-archiver/internal/logsink"
)

// event writes to the application log and the sink. Sink failures are
// logged and otherwise ignored.
func (r *Registry) event(level logsink.Level, job, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case logsink.LevelError:
		r.log.Error("job %s: %s", job, msg)
	case logsink.LevelWarn:
		r.log.Warn("job %s: %s", job, msg)
	case logsink.LevelDebug:
		r.log.Debug("job %s: %s", job, msg)
	default:
		r.log.Info("job %s: %s", job, msg)
	}

	err := r.sink.WriteEntry(logsink.Entry{
		Time:    r.clock.Now(),
		Level:   level,
		Source:  job,
		Message: msg,
	})
	if err != nil {
		r.log.Warn("job %s: writing log entry: %v", job, err)
	}
}
