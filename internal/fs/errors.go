package fs

import (
	"context"
	"syscall"

	"github.com/juju/errors"
)

// defines helpers for detecting transient filesystem errors.
// These determine whether an operation should retry or fail immediately.

const errSourceChanged = errors.ConstError("source changed during copy")

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, errSourceChanged) {
		return true
	}
	return platformTransient(err)
}
