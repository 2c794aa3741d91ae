// Package strategy implements the full and differential backup algorithms
// on top of the fs adapter.
//
// A Strategy holds no per-run state, so one instance may be shared by any
// number of jobs. Cancellation is carried by the context passed to Execute
// and is checked before each file is copied; the adapter checks it again
// for every chunk.
package strategy

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/logging"
)

const (
	NameFull         = "full"
	NameDifferential = "differential"
)

type Strategy interface {
	Name() string
	// Execute mirrors source into destination. A nil error means success.
	Execute(ctx context.Context, source, destination string, hooks Hooks) error
}

// Transfer describes one file copy attempt.
type Transfer struct {
	Source  string
	Target  string
	Size    int64
	Elapsed time.Duration
	Err     error
}

// Hooks are per-run callbacks. Both fields are optional.
type Hooks struct {
	Progress   fs.ProgressFunc
	OnTransfer func(Transfer)
}

func (h Hooks) progress(p int) {
	if h.Progress != nil {
		h.Progress(p)
	}
}

func (h Hooks) transfer(t Transfer) {
	if h.OnTransfer != nil {
		h.OnTransfer(t)
	}
}

// New returns the strategy registered under name.
func New(name string, filesystem fs.FS, log logging.Logger) (Strategy, error) {
	switch name {
	case NameFull:
		return NewFull(filesystem, log), nil
	case NameDifferential:
		return NewDifferential(filesystem, log), nil
	default:
		return nil, errors.NotValidf("strategy %q", name)
	}
}

func defaults(filesystem fs.FS, log logging.Logger) (fs.FS, logging.Logger) {
	if log == nil {
		log = logging.Discard{}
	}
	if filesystem == nil {
		filesystem = fs.New().WithLogger(log)
	}
	return filesystem, log
}
