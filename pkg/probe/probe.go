package probe

import (
	"context"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Prober executes a single probe. Implementations never return an error:
// every failure is a non-success result carrying a classified error.
type Prober interface {
	Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, req types.ProbeRequest) types.ProbeResult

// Probe calls f(ctx, req)
func (f ProberFunc) Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult {
	return f(ctx, req)
}

// Runner dispatches requests to the prober configured for their kind
type Runner struct {
	tcp  Prober
	ping Prober
}

// NewRunner creates a runner; nil probers fall back to TCPProber and SystemPinger
func NewRunner(tcp, ping Prober) *Runner {
	if tcp == nil {
		tcp = &TCPProber{}
	}
	if ping == nil {
		ping = NewSystemPinger()
	}
	return &Runner{tcp: tcp, ping: ping}
}

// Probe validates req and hands it to the matching prober
func (r *Runner) Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult {
	if err := req.Validate(); err != nil {
		return invalid(req, err)
	}

	switch req.Kind {
	case types.TCPConnect:
		return r.tcp.Probe(ctx, req)
	case types.Ping:
		return r.ping.Probe(ctx, req)
	default:
		return types.Failed(req, 0, types.ClassOther, "unsupported probe kind "+req.Kind.String())
	}
}

func invalid(req types.ProbeRequest, err error) types.ProbeResult {
	return types.Failed(req, 0, types.ClassOther, err.Error())
}
