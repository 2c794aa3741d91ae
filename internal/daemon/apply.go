package daemon

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/gate"
	"github.com/raoulx24/tree-archiver/internal/strategy"
)

// Apply reconciles the running components with cfg. Jobs that disappeared
// or whose paths or strategy changed are deregistered, which cancels a run
// in progress; new and changed jobs are registered as pending. Schedule-only
// changes keep the registered job and its state.
func (d *Daemon) Apply(cfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := make(map[string]config.JobConfig, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		want[j.Name] = j
	}

	for name, old := range d.applied {
		if j, ok := want[name]; ok && sameJob(j, old) {
			d.applied[name] = j
			continue
		}
		d.registry.Deregister(name)
		delete(d.applied, name)
		d.log.Info("job %s removed", name)
	}

	var failed []string
	for _, j := range cfg.Jobs {
		if _, ok := d.applied[j.Name]; ok {
			continue
		}
		s, err := strategy.New(j.Strategy, d.fs, d.log)
		if err == nil {
			err = d.registry.Register(j.Name, j.Source, j.Destination, s)
		}
		if err != nil {
			d.log.Error("registering job %s: %v", j.Name, err)
			failed = append(failed, j.Name)
			continue
		}
		d.applied[j.Name] = j
		d.log.Info("job %s registered: %s -> %s (%s)", j.Name, j.Source, j.Destination, s.Name())
	}

	d.applyGate(d.cfg.Gate, cfg.Gate)

	var errs []error
	if len(failed) > 0 {
		errs = append(errs, errors.Errorf("jobs %v could not be registered", failed))
	}
	if err := d.scheduler.Sync(cfg.Jobs); err != nil {
		errs = append(errs, err)
	}
	if d.watcher != nil {
		d.watcher.UpdateConfig(cfg.ConfigReload)
	}
	d.cfg = cfg

	if len(errs) > 0 {
		return errors.Annotate(errs[0], "applying config")
	}
	return nil
}

func sameJob(a, b config.JobConfig) bool {
	a.Schedule, b.Schedule = "", ""
	return a == b
}

// applyGate swaps the configured extra names from prev to next. Built-in
// defaults are never removed.
func (d *Daemon) applyGate(prev, next config.GateConfig) {
	defaults := set.NewStrings(gate.DefaultPriority...)
	drop := set.NewStrings(prev.Priority...).Difference(set.NewStrings(next.Priority...)).Difference(defaults)
	d.gate.RemovePriority(drop.Values()...)
	d.gate.AddPriority(next.Priority...)

	defaults = set.NewStrings(gate.DefaultBlocking...)
	drop = set.NewStrings(prev.Blocking...).Difference(set.NewStrings(next.Blocking...)).Difference(defaults)
	d.gate.RemoveBlocking(drop.Values()...)
	d.gate.AddBlocking(next.Blocking...)
}
