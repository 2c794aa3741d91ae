// Package registry keeps the table of named backup jobs and runs them.
//
// One mutex guards the table. Critical sections only touch the map and the
// entry fields; strategy execution, gate queries and sink writes happen
// outside it. Every run gets a RunID and late updates from a superseded run
// are dropped by comparing it.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/logging"
	"github.com/raoulx24/tree-archiver/internal/logsink"
	"github.com/raoulx24/tree-archiver/internal/metrics"
	"github.com/raoulx24/tree-archiver/internal/strategy"
)

// Gate is the subset of the process gate the registry consults.
type Gate interface {
	AnyBlockingRunning(ctx context.Context) (bool, error)
	RunningPriority(ctx context.Context) ([]string, error)
}

// ProgressFunc observes progress of a job run.
type ProgressFunc func(name string, percent int)

type Params struct {
	Log     logging.Logger
	Sink    logsink.Sink
	Gate    Gate // optional
	Metrics *metrics.Metrics
	Clock   clock.Clock

	// PriorityPoll is how often a run waiting on priority processes
	// re-checks the gate.
	PriorityPoll time.Duration
	// LogTransfers writes one sink entry per copied file.
	LogTransfers bool
}

type Registry struct {
	mu   sync.Mutex
	jobs map[string]*entry

	log          logging.Logger
	sink         logsink.Sink
	gate         Gate
	metrics      *metrics.Metrics
	clock        clock.Clock
	priorityPoll time.Duration
	logTransfers bool

	wg sync.WaitGroup
}

func New(p Params) *Registry {
	r := &Registry{
		jobs:         make(map[string]*entry),
		log:          p.Log,
		sink:         p.Sink,
		gate:         p.Gate,
		metrics:      p.Metrics,
		clock:        p.Clock,
		priorityPoll: p.PriorityPoll,
		logTransfers: p.LogTransfers,
	}
	if r.log == nil {
		r.log = logging.Discard{}
	}
	if r.sink == nil {
		r.sink = logsink.NewMemory()
	}
	if r.clock == nil {
		r.clock = clock.WallClock
	}
	if r.priorityPoll <= 0 {
		r.priorityPoll = 30 * time.Second
	}
	return r
}

// Register adds a pending job.
func (r *Registry) Register(name, source, destination string, s strategy.Strategy) error {
	if name == "" || source == "" || destination == "" || s == nil {
		return errors.Annotatef(ErrInvalidJob, "job %q: name, source, destination and strategy are required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return errors.Annotatef(ErrDuplicateName, "job %q", name)
	}
	r.jobs[name] = &entry{
		job: Job{
			Name:        name,
			Source:      source,
			Destination: destination,
			Strategy:    s.Name(),
			Status:      StatusPending,
		},
		strategy: s,
	}
	return nil
}

// Deregister removes a job, cancelling it first if it is running. Unknown
// names are ignored.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	e, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.jobs, name)
	cancel := e.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.log.Info("job %s: deregistered while running, cancelled", name)
	}
}

// GetJob returns a copy of the named job.
func (r *Registry) GetJob(name string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok {
		return Job{}, errors.Annotatef(ErrNotFound, "job %q", name)
	}
	return e.job, nil
}

// List returns copies of all jobs sorted by name.
func (r *Registry) List() []Job {
	r.mu.Lock()
	jobs := make([]Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		jobs = append(jobs, e.job)
	}
	r.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// Close cancels every running job and waits for their goroutines to end.
func (r *Registry) Close() {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for _, e := range r.jobs {
		if e.cancel == nil {
			continue
		}
		if e.job.Status == StatusRunning {
			e.job.Status = StatusCancelled
		}
		cancels = append(cancels, e.cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	r.wg.Wait()
}
