package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// TCPProber checks reachability with a full TCP handshake
type TCPProber struct {
	// Dialer is cloned for every probe when set
	Dialer *net.Dialer
}

// Probe dials req.Target within req.Timeout and closes the connection right away
func (p *TCPProber) Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult {
	if err := req.Validate(); err != nil {
		return invalid(req, err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var dialer net.Dialer
	if p.Dialer != nil {
		dialer = *p.Dialer
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", req.Target.Address())
	elapsed := time.Since(start)
	if err != nil {
		return types.Failed(req, elapsed, classifyDialError(err), err.Error())
	}
	_ = conn.Close()

	return types.Succeeded(req, elapsed)
}

// classifyDialError maps a dial failure to its error class
func classifyDialError(err error) types.ErrorClass {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if class, ok := classifyErrno(errno); ok {
			return class
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return types.ClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ClassTimeout
	}

	return types.ClassOther
}
