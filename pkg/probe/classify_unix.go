//go:build !windows

package probe

import (
	"syscall"

	"github.com/projectdiscovery/netdiag/pkg/types"
	"golang.org/x/sys/unix"
)

func classifyErrno(errno syscall.Errno) (types.ErrorClass, bool) {
	switch errno {
	case unix.ECONNREFUSED:
		return types.ClassRefused, true
	case unix.ETIMEDOUT:
		return types.ClassTimeout, true
	case unix.EHOSTUNREACH, unix.ENETUNREACH, unix.EHOSTDOWN, unix.EADDRNOTAVAIL:
		return types.ClassUnreachable, true
	default:
		return 0, false
	}
}
