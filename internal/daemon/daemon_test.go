package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/gate"
	"github.com/raoulx24/tree-archiver/internal/logging"
	"github.com/raoulx24/tree-archiver/internal/registry"
)

func jobs(dir string, names ...string) []config.JobConfig {
	var out []config.JobConfig
	for _, n := range names {
		out = append(out, config.JobConfig{
			Name:        n,
			Source:      filepath.Join(dir, "src", n),
			Destination: filepath.Join(dir, "dst", n),
			Strategy:    "full",
		})
	}
	return out
}

func newDaemon(c *qt.C, cfg *config.Config) *Daemon {
	d, err := New(Params{Config: cfg, Log: logging.Discard{}, Lister: gate.StaticLister{}})
	c.Assert(err, qt.IsNil)
	c.Cleanup(d.Registry().Close)
	return d
}

func names(d *Daemon) []string {
	var out []string
	for _, j := range d.Registry().List() {
		out = append(out, j.Name)
	}
	return out
}

func TestNewRegistersJobs(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	cfg := &config.Config{Jobs: jobs(dir, "b", "a")}
	cfg.Jobs[0].Schedule = "@daily"
	d := newDaemon(c, cfg)

	c.Check(names(d), qt.DeepEquals, []string{"a", "b"})
	c.Check(d.scheduler.Scheduled(), qt.DeepEquals, []string{"b"})
	for _, j := range d.Registry().List() {
		c.Check(j.Status, qt.Equals, registry.StatusPending)
		c.Check(j.Strategy, qt.Equals, "full")
	}
}

func TestNewRejectsBadSink(t *testing.T) {
	c := qt.New(t)
	_, err := New(Params{Config: &config.Config{Sink: config.SinkConfig{Format: "csv"}}})
	c.Check(errors.Is(err, errors.NotValid), qt.IsTrue)
	_, err = New(Params{})
	c.Check(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestApplyReconcilesJobs(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	cfg := &config.Config{Jobs: jobs(dir, "keep", "drop", "move", "resched")}
	d := newDaemon(c, cfg)

	// Give "resched" some state to check it survives a schedule change.
	c.Assert(os.MkdirAll(filepath.Join(dir, "src", "resched"), 0o755), qt.IsNil)
	done, err := d.Registry().Start(context.Background(), "resched", nil)
	c.Assert(err, qt.IsNil)
	<-done
	before, _ := d.Registry().GetJob("resched")
	c.Assert(before.Status, qt.Equals, registry.StatusCompleted)

	next := &config.Config{Jobs: jobs(dir, "keep", "move", "resched", "new")}
	next.Jobs[1].Destination = filepath.Join(dir, "elsewhere")
	next.Jobs[1].Strategy = "differential"
	next.Jobs[2].Schedule = "@hourly"
	c.Assert(d.Apply(next), qt.IsNil)

	c.Check(names(d), qt.DeepEquals, []string{"keep", "move", "new", "resched"})
	moved, _ := d.Registry().GetJob("move")
	c.Check(moved.Destination, qt.Equals, filepath.Join(dir, "elsewhere"))
	c.Check(moved.Strategy, qt.Equals, "differential")
	after, _ := d.Registry().GetJob("resched")
	c.Check(after, qt.DeepEquals, before)
	c.Check(d.scheduler.Scheduled(), qt.DeepEquals, []string{"resched"})
	c.Check(d.Config(), qt.Equals, next)
}

func TestApplyReportsBadJobs(t *testing.T) {
	c := qt.New(t)
	d := newDaemon(c, &config.Config{})
	bad := &config.Config{Jobs: []config.JobConfig{
		{Name: "x", Source: "/a", Destination: "/b", Strategy: "incremental"},
		{Name: "y", Source: "/a", Destination: "/b", Strategy: "full"},
	}}
	err := d.Apply(bad)
	c.Check(err, qt.ErrorMatches, `applying config: jobs \[x\] could not be registered`)
	c.Check(names(d), qt.DeepEquals, []string{"y"})
}

func TestApplyGate(t *testing.T) {
	c := qt.New(t)
	d := newDaemon(c, &config.Config{Gate: config.GateConfig{Blocking: []string{"Editor.exe", "excel.exe"}}})
	c.Check(d.Gate().IsBlocking("editor.exe"), qt.IsTrue)

	c.Assert(d.Apply(&config.Config{Gate: config.GateConfig{Priority: []string{"obs64.exe"}}}), qt.IsNil)
	c.Check(d.Gate().IsBlocking("editor.exe"), qt.IsFalse)
	c.Check(d.Gate().IsBlocking("excel.exe"), qt.IsTrue)
	c.Check(d.Gate().IsPriority("OBS64.EXE"), qt.IsTrue)
}

func TestRunReloadsConfigAndStops(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := func(names ...string) string {
		s := "configReload: {enabled: true, method: poll, pollInterval: 1s}\nmetrics: {listen: '127.0.0.1:0'}\njobs:\n"
		for _, n := range names {
			s += fmt.Sprintf("  - {name: %s, source: %s, destination: %s}\n", n, filepath.Join(dir, n), filepath.Join(dir, "out", n))
		}
		return s
	}
	mtime := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	c.Assert(os.WriteFile(path, []byte(body("docs")), 0o644), qt.IsNil)
	c.Assert(os.Chtimes(path, mtime, mtime), qt.IsNil)

	cfg, err := config.Load(path)
	c.Assert(err, qt.IsNil)
	clk := testclock.NewClock(mtime)
	d, err := New(Params{ConfigPath: path, Config: cfg, Log: logging.Discard{}, Lister: gate.StaticLister{}, Clock: clk})
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	c.Assert(os.WriteFile(path, []byte(body("docs", "photos")), 0o644), qt.IsNil)
	c.Assert(os.Chtimes(path, mtime.Add(time.Minute), mtime.Add(time.Minute)), qt.IsNil)
	c.Assert(clk.WaitAdvance(time.Second, 5*time.Second, 1), qt.IsNil)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := d.Registry().GetJob("photos"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			c.Fatal("reloaded job never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Check(names(d), qt.DeepEquals, []string{"docs", "photos"})

	cancel()
	select {
	case err := <-done:
		c.Check(err, qt.IsNil)
	case <-time.After(10 * time.Second):
		c.Fatal("Run did not return")
	}
}
