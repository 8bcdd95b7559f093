//go:build !windows

package runner

import "golang.org/x/sys/unix"

// openFileLimit returns the soft limit on open descriptors of the process
func openFileLimit() (uint64, bool) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, false
	}
	return uint64(rlim.Cur), true
}
