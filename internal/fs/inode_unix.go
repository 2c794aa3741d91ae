//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode from syscall.Stat_t on Unix systems.
// A changed inode means the source file was replaced during a copy.
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
