//go:build windows

package probe

import (
	"syscall"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Winsock error codes
const (
	wsaEADDRNOTAVAIL = syscall.Errno(10049)
	wsaENETUNREACH   = syscall.Errno(10051)
	wsaETIMEDOUT     = syscall.Errno(10060)
	wsaECONNREFUSED  = syscall.Errno(10061)
	wsaEHOSTDOWN     = syscall.Errno(10064)
	wsaEHOSTUNREACH  = syscall.Errno(10065)
)

func classifyErrno(errno syscall.Errno) (types.ErrorClass, bool) {
	switch errno {
	case wsaECONNREFUSED:
		return types.ClassRefused, true
	case wsaETIMEDOUT:
		return types.ClassTimeout, true
	case wsaEHOSTUNREACH, wsaENETUNREACH, wsaEHOSTDOWN, wsaEADDRNOTAVAIL:
		return types.ClassUnreachable, true
	default:
		return 0, false
	}
}
