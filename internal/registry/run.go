package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/logsink"
	"github.com/raoulx24/tree-archiver/internal/strategy"
)

// Start launches a run of the named job on its own goroutine and returns a
// channel that is closed when the run ends. Only contract violations are
// returned; how the run ended is visible through GetJob.
//
// Cancelling ctx cancels the run. Start fails with ErrBlocked, leaving the
// job untouched, while a blocking process is running.
func (r *Registry) Start(ctx context.Context, name string, progress ProgressFunc) (<-chan struct{}, error) {
	if err := r.checkStartable(name); err != nil {
		return nil, err
	}

	if r.gate != nil {
		blocked, err := r.gate.AnyBlockingRunning(ctx)
		if err != nil {
			r.log.Warn("job %s: process gate unavailable, starting anyway: %v", name, err)
		} else if blocked {
			r.event(logsink.LevelWarn, name, "backup not started: blocking process running")
			return nil, errors.Annotatef(ErrBlocked, "job %q", name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	done := make(chan struct{})

	// The lock was released for the gate query; check again.
	r.mu.Lock()
	e, ok := r.jobs[name]
	switch {
	case !ok:
		r.mu.Unlock()
		cancel()
		return nil, errors.Annotatef(ErrNotFound, "job %q", name)
	case e.job.Status == StatusRunning:
		r.mu.Unlock()
		cancel()
		return nil, errors.Annotatef(ErrAlreadyRunning, "job %q", name)
	}
	e.job.Status = StatusRunning
	e.job.Progress = 0
	e.job.RunID = runID
	e.job.LastError = ""
	e.job.StartedAt = r.clock.Now()
	e.cancel = cancel
	e.done = done
	job, strat := e.job, e.strategy
	r.wg.Add(1)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RunsStarted.WithLabelValues(name).Inc()
		r.metrics.Running.Inc()
	}
	r.event(logsink.LevelInfo, name, "backup started: %s -> %s (%s, run %s)", job.Source, job.Destination, job.Strategy, runID)

	go r.run(runCtx, cancel, job, strat, progress, done)
	return done, nil
}

func (r *Registry) checkStartable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok {
		return errors.Annotatef(ErrNotFound, "job %q", name)
	}
	if e.job.Status == StatusRunning {
		return errors.Annotatef(ErrAlreadyRunning, "job %q", name)
	}
	return nil
}

func (r *Registry) run(ctx context.Context, cancel context.CancelFunc, job Job, strat strategy.Strategy, progress ProgressFunc, done chan struct{}) {
	defer r.wg.Done()
	defer close(done)
	defer cancel()

	if err := r.waitForPriority(ctx, job.Name); err != nil {
		r.finish(job.Name, job.RunID, err)
		return
	}

	hooks := strategy.Hooks{
		Progress: func(p int) {
			if r.updateProgress(job.Name, job.RunID, p) && progress != nil {
				progress(job.Name, p)
			}
		},
		OnTransfer: func(t strategy.Transfer) { r.transfer(job.Name, t) },
	}
	err := strat.Execute(ctx, job.Source, job.Destination, hooks)
	r.finish(job.Name, job.RunID, err)
}

// waitForPriority holds the run while priority processes are running.
func (r *Registry) waitForPriority(ctx context.Context, name string) error {
	if r.gate == nil {
		return nil
	}
	logged := false
	for {
		running, err := r.gate.RunningPriority(ctx)
		if err != nil {
			r.log.Warn("job %s: process gate unavailable, not waiting: %v", name, err)
			return nil
		}
		if len(running) == 0 {
			if logged {
				r.event(logsink.LevelInfo, name, "priority processes gone, resuming")
			}
			return nil
		}
		if !logged {
			r.event(logsink.LevelInfo, name, "waiting for priority processes: %s", strings.Join(running, ", "))
			logged = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.priorityPoll):
		}
	}
}

// finish records the outcome of a run unless the run has been superseded,
// deregistered or cancelled in the meantime.
func (r *Registry) finish(name, runID string, err error) {
	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

	r.mu.Lock()
	e, ok := r.jobs[name]
	if !ok || e.job.RunID != runID {
		r.mu.Unlock()
		r.finished(name, StatusCancelled)
		return
	}
	e.cancel = nil
	status := e.job.Status
	if status == StatusRunning {
		switch {
		case err == nil:
			e.job.Progress = 100
			e.job.LastBackup = r.clock.Now()
			status = StatusCompleted
		case cancelled:
			status = StatusCancelled
		default:
			e.job.LastError = err.Error()
			status = StatusFailed
		}
		e.job.Status = status
	}
	r.mu.Unlock()

	r.finished(name, status)
	switch {
	case status == StatusCompleted:
		r.event(logsink.LevelInfo, name, "backup completed")
	case status == StatusCancelled:
		r.event(logsink.LevelWarn, name, "backup cancelled")
	case err != nil:
		r.event(logsink.LevelError, name, "backup failed: %v", err)
	}
}

func (r *Registry) finished(name string, status Status) {
	if r.metrics == nil {
		return
	}
	r.metrics.Running.Dec()
	r.metrics.RunsFinished.WithLabelValues(name, string(status)).Inc()
}

// Cancel asks a running job to stop and marks it cancelled straight away.
// The copy in flight may still finish its current chunk.
func (r *Registry) Cancel(name string) error {
	r.mu.Lock()
	e, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return errors.Annotatef(ErrNotFound, "job %q", name)
	}
	if e.job.Status != StatusRunning {
		r.mu.Unlock()
		return nil
	}
	e.job.Status = StatusCancelled
	cancel := e.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.log.Info("job %s: cancel requested", name)
	return nil
}

// UpdateProgress sets the progress of a running job. Values are clamped to
// [0, 100] and never move backwards within a run.
func (r *Registry) UpdateProgress(name string, percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok {
		return errors.Annotatef(ErrNotFound, "job %q", name)
	}
	e.setProgress(percent)
	return nil
}

func (r *Registry) updateProgress(name, runID string, percent int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok || e.job.RunID != runID {
		return false
	}
	return e.setProgress(percent)
}

func (e *entry) setProgress(percent int) bool {
	if e.job.Status != StatusRunning {
		return false
	}
	percent = max(0, min(percent, 100))
	if percent < e.job.Progress {
		return false
	}
	e.job.Progress = percent
	return true
}

// Wait returns the done channel of the job's current or last run, or nil if
// it never ran.
func (r *Registry) Wait(name string) (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok {
		return nil, errors.Annotatef(ErrNotFound, "job %q", name)
	}
	if e.done == nil {
		return nil, nil
	}
	return e.done, nil
}

func (r *Registry) transfer(name string, t strategy.Transfer) {
	outcome := "ok"
	if t.Err != nil {
		outcome = t.Err.Error()
	} else if r.metrics != nil {
		r.metrics.FilesCopied.WithLabelValues(name).Inc()
		r.metrics.BytesCopied.WithLabelValues(name).Add(float64(t.Size))
	}
	if !r.logTransfers {
		return
	}

	level := logsink.LevelInfo
	if t.Err != nil {
		level = logsink.LevelError
	}
	entry := logsink.Entry{
		Time:    r.clock.Now(),
		Level:   level,
		Source:  name,
		Message: fmt.Sprintf("copied %s (%s in %s)", t.Source, humanize.Bytes(uint64(t.Size)), t.Elapsed),
		Job:     name,
		From:    t.Source,
		To:      t.Target,
		Bytes:   t.Size,
		Elapsed: t.Elapsed,
		Outcome: outcome,
	}
	if err := r.sink.WriteEntry(entry); err != nil {
		r.log.Warn("job %s: writing transfer entry: %v", name, err)
	}
}
