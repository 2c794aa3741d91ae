package scheduler

import (
	"fmt"
	"strings"

	"github.com/raoulx24/tree-archiver/internal/logging"
)

// cronLogger routes cron's key/value logging through our Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: %s%s", msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: %s: %v%s", msg, err, pairs(keysAndValues))
}

func pairs(kv []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
