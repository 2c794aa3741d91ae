//go:build windows

package fs

import (
	"github.com/juju/errors"
	"golang.org/x/sys/windows"
)

// Antivirus scanners and the search indexer briefly hold files open.
func platformTransient(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
