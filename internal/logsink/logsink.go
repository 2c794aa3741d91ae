// Package logsink persists job events and reads them back filtered by time
// range and level.
package logsink

import (
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/config"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one logged event. The transfer fields are only set for per-file
// transfer entries.
type Entry struct {
	Time    time.Time
	Level   Level
	Source  string
	Message string

	Job     string
	From    string
	To      string
	Bytes   int64
	Elapsed time.Duration
	Outcome string
}

// Filter selects entries. Zero fields match everything; Start and End are
// inclusive.
type Filter struct {
	Start time.Time
	End   time.Time
	Level Level
}

func (f Filter) match(e Entry) bool {
	if !f.Start.IsZero() && e.Time.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Time.After(f.End) {
		return false
	}
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	return true
}

type Sink interface {
	WriteEntry(e Entry) error
	// ReadEntries returns matching entries ordered by time.
	ReadEntries(f Filter) ([]Entry, error)
}

// Open returns the sink described by cfg.
func Open(cfg config.SinkConfig) (Sink, error) {
	switch cfg.Format {
	case "", "memory":
		return NewMemory(), nil
	case "json":
		return NewJSON(cfg.Path), nil
	case "xml":
		return NewXML(cfg.Path), nil
	default:
		return nil, errors.NotValidf("sink format %q", cfg.Format)
	}
}

func filterSorted(entries []Entry, f Filter) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Memory keeps entries in process memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) WriteEntry(e Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ReadEntries(f Filter) ([]Entry, error) {
	m.mu.Lock()
	snapshot := append([]Entry(nil), m.entries...)
	m.mu.Unlock()
	return filterSorted(snapshot, f), nil
}
