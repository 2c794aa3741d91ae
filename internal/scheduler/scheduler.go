// Package scheduler triggers registry runs from cron expressions.
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/robfig/cron/v3"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/logging"
	"github.com/raoulx24/tree-archiver/internal/registry"
)

// Starter starts a registered job by name.
type Starter interface {
	Start(ctx context.Context, name string, progress registry.ProgressFunc) (<-chan struct{}, error)
}

type scheduled struct {
	id   cron.EntryID
	spec string
}

type Scheduler struct {
	mu      sync.Mutex
	base    context.Context
	entries map[string]scheduled

	cron    *cron.Cron
	starter Starter
	log     logging.Logger
}

func New(starter Starter, log logging.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		base:    context.Background(),
		entries: make(map[string]scheduled),
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		starter: starter,
		log:     log,
	}
}

// Sync makes the cron table match jobs. Jobs without a schedule are left
// out; entries whose expression changed are replaced.
func (s *Scheduler) Sync(jobs []config.JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if j.Schedule != "" {
			want[j.Name] = j.Schedule
		}
	}

	for name, e := range s.entries {
		if spec, ok := want[name]; ok && spec == e.spec {
			continue
		}
		s.cron.Remove(e.id)
		delete(s.entries, name)
		s.log.Debug("unscheduled job %s", name)
	}

	var errs []string
	for name, spec := range want {
		if _, ok := s.entries[name]; ok {
			continue
		}
		id, err := s.cron.AddFunc(spec, func() { s.trigger(name) })
		if err != nil {
			errs = append(errs, name)
			s.log.Error("scheduling job %s with %q: %v", name, spec, err)
			continue
		}
		s.entries[name] = scheduled{id: id, spec: spec}
		s.log.Info("scheduled job %s: %s", name, spec)
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.NotValidf("schedule for jobs %v", errs)
	}
	return nil
}

// Run starts the cron loop and blocks until ctx is done. Runs it triggers
// use ctx, so they are cancelled on shutdown as well.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Scheduled returns the names of jobs with a cron entry, sorted.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) trigger(name string) {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()

	_, err := s.starter.Start(ctx, name, nil)
	switch {
	case err == nil:
		s.log.Debug("cron started job %s", name)
	case errors.Is(err, registry.ErrAlreadyRunning), errors.Is(err, registry.ErrBlocked):
		s.log.Info("cron run of %s skipped: %v", name, err)
	case errors.Is(err, registry.ErrNotFound):
		s.log.Warn("cron fired for unregistered job %s", name)
	default:
		s.log.Error("cron run of %s: %v", name, err)
	}
}
