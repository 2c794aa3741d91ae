package registry

import (
	"context"
	"time"

	"github.com/raoulx24/tree-archiver/internal/strategy"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is a snapshot of a registered backup. Values returned by the registry
// are copies; changing them has no effect on the registry.
type Job struct {
	Name        string
	Source      string
	Destination string
	Strategy    string
	Status      Status
	Progress    int
	RunID       string
	StartedAt   time.Time
	LastBackup  time.Time // zero until the first successful run
	LastError   string
}

// entry is the registry-owned state behind a Job.
type entry struct {
	job      Job
	strategy strategy.Strategy
	cancel   context.CancelFunc
	done     chan struct{}
}
