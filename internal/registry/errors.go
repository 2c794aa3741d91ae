package registry

import "github.com/juju/errors"

// Contract violations returned to callers. Execution failures are never
// returned; they end up in the job's status and the log sink.
const (
	ErrNotFound       = errors.ConstError("job not found")
	ErrDuplicateName  = errors.ConstError("job already registered")
	ErrAlreadyRunning = errors.ConstError("job already running")
	ErrBlocked        = errors.ConstError("blocking process running")
	ErrInvalidJob     = errors.ConstError("invalid job")
)
