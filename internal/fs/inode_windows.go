//go:build windows

package fs

import "os"

// Windows does not expose POSIX inodes through os.FileInfo; change
// detection there relies on size and mtime only.
func inodeOf(os.FileInfo) uint64 {
	return 0
}
