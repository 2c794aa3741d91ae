//go:build !windows

package fs

func platformTransient(error) bool { return false }
