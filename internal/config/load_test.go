package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"
)

const sample = `
jobs:
  - name: docs
    source: $(TA_TEST_HOME)/docs
    destination: /backup/docs
    strategy: differential
    schedule: "0 3 * * *"
  - name: photos
    source: /home/u/photos
    destination: /backup/photos
gate:
  blocking: [editor.exe]
  pollInterval: 10s
sink:
  path: /var/log/tree-archiver/events.jsonl
  logTransfers: true
`

func TestLoad(t *testing.T) {
	c := qt.New(t)
	t.Setenv("TA_TEST_HOME", "/home/u")

	path := filepath.Join(t.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(sample), 0o644), qt.IsNil)

	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Jobs, qt.HasLen, 2)
	c.Check(cfg.Jobs[0].Source, qt.Equals, "/home/u/docs")
	c.Check(cfg.Jobs[0].Strategy, qt.Equals, "differential")
	c.Check(cfg.Jobs[1].Strategy, qt.Equals, "full")
	c.Check(cfg.Gate.Blocking, qt.DeepEquals, []string{"editor.exe"})
	c.Check(cfg.Gate.PollInterval, qt.Equals, 10*time.Second)
	c.Check(cfg.Sink.Format, qt.Equals, "json")
	c.Check(cfg.Sink.LogTransfers, qt.IsTrue)
	c.Check(cfg.ConfigReload.Method, qt.Equals, "auto")
	c.Check(cfg.ConfigReload.DebounceWindow, qt.Equals, defaultDebounce)

	job, ok := cfg.Job("photos")
	c.Check(ok, qt.IsTrue)
	c.Check(job.Destination, qt.Equals, "/backup/photos")
	_, ok = cfg.Job("missing")
	c.Check(ok, qt.IsFalse)
}

func TestParseEmpty(t *testing.T) {
	c := qt.New(t)
	cfg, err := Parse(nil)
	c.Assert(err, qt.IsNil)
	c.Check(cfg.Jobs, qt.HasLen, 0)
	c.Check(cfg.Sink.Format, qt.Equals, "memory")
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "jobz: []"},
		{"empty name", "jobs: [{source: /a, destination: /b}]"},
		{"duplicate", "jobs: [{name: a, source: /a, destination: /b}, {name: a, source: /c, destination: /d}]"},
		{"missing destination", "jobs: [{name: a, source: /a}]"},
		{"bad strategy", "jobs: [{name: a, source: /a, destination: /b, strategy: incremental}]"},
		{"bad schedule", "jobs: [{name: a, source: /a, destination: /b, schedule: 'every day'}]"},
		{"xml without path", "sink: {format: xml}"},
		{"bad reload method", "configReload: {method: inotify}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			_, err := Parse([]byte(tt.yaml))
			c.Assert(err, qt.Not(qt.IsNil))
			if tt.name != "unknown key" {
				c.Check(errors.Is(err, errors.NotValid), qt.IsTrue)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := qt.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	c.Assert(err, qt.ErrorMatches, "reading config file: .*")
}
