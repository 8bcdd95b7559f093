package netdiag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/expander"
	"github.com/projectdiscovery/netdiag/pkg/probe"
	"github.com/projectdiscovery/netdiag/pkg/resolver"
	"github.com/projectdiscovery/netdiag/pkg/sweep"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Defaults applied to zero-valued Options fields
const (
	DefaultPingCount     = 4
	DefaultPingTimeout   = 10 * time.Second
	DefaultScanTimeout   = time.Second
	DefaultSweepTimeout  = 2 * time.Second
	DefaultConcurrency   = 100
	DefaultMaxSweepHosts = 65536
)

// ErrHostNotFound is returned when a hostname has no addresses
var ErrHostNotFound = errors.New("host not found")

// Options configures an Engine
type Options struct {
	// Prober runs individual probes, probe.NewRunner(nil, nil) when nil
	Prober probe.Prober
	// Resolver turns hostnames into addresses, the system resolver when nil
	Resolver resolver.Resolver

	PingTimeout  time.Duration
	ScanTimeout  time.Duration
	SweepTimeout time.Duration
	// Concurrency bounds in-flight probes of scans and sweeps
	Concurrency int
	// MaxSweepHosts rejects sweeps over larger blocks, negative disables the check
	MaxSweepHosts int
	// Prioritize dispatches likely live hosts of a sweep first
	Prioritize bool
}

// Engine runs diagnostic operations
type Engine struct {
	options     Options
	prober      probe.Prober
	resolver    resolver.Resolver
	coordinator *sweep.Coordinator
}

// New creates an engine, filling unset options with defaults
func New(options Options) *Engine {
	if options.Prober == nil {
		options.Prober = probe.NewRunner(nil, nil)
	}
	if options.Resolver == nil {
		options.Resolver = resolver.NewSystem()
	}
	if options.PingTimeout <= 0 {
		options.PingTimeout = DefaultPingTimeout
	}
	if options.ScanTimeout <= 0 {
		options.ScanTimeout = DefaultScanTimeout
	}
	if options.SweepTimeout <= 0 {
		options.SweepTimeout = DefaultSweepTimeout
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.MaxSweepHosts == 0 {
		options.MaxSweepHosts = DefaultMaxSweepHosts
	}

	return &Engine{
		options:     options,
		prober:      options.Prober,
		resolver:    options.Resolver,
		coordinator: sweep.New(options.Prober),
	}
}

// Options returns the effective options of the engine
func (e *Engine) Options() Options {
	return e.options
}

// Ping sends count echoes to host. Resolution failures are reported as a
// failed result rather than an error.
func (e *Engine) Ping(ctx context.Context, host string, count int) types.ProbeResult {
	if count <= 0 {
		count = DefaultPingCount
	}
	req := types.ProbeRequest{
		Target:  types.NewTarget(host, 0),
		Kind:    types.Ping,
		Timeout: e.options.PingTimeout,
		Count:   count,
	}

	addr, err := e.resolveHost(ctx, host)
	if err != nil {
		return types.Failed(req, 0, types.ClassOther, err.Error())
	}
	req.Target.Host = addr

	return e.prober.Probe(ctx, req)
}

// ScanPorts attempts a TCP handshake with every port named by portSpec.
// The spec is validated and the host resolved before any probe is sent.
func (e *Engine) ScanPorts(ctx context.Context, host, portSpec string, timeout time.Duration) (sweep.Outcome, error) {
	ports, err := expander.ExpandPorts(portSpec)
	if err != nil {
		return sweep.Outcome{}, err
	}
	if timeout <= 0 {
		timeout = e.options.ScanTimeout
	}

	addr, err := e.resolveHost(ctx, host)
	if err != nil {
		return sweep.Outcome{}, err
	}

	targets := make([]types.Target, 0, len(ports))
	for _, port := range ports {
		targets = append(targets, types.NewTarget(addr, port))
	}

	plan, err := sweep.NewPlan(targets, e.options.Concurrency, timeout)
	if err != nil {
		return sweep.Outcome{}, err
	}
	return e.coordinator.Run(ctx, plan, types.TCPConnect, nil), nil
}

// Sweep pings every usable host of cidr once. A single echo reply is
// enough for a host to count as reachable.
func (e *Engine) Sweep(ctx context.Context, cidr string, concurrency int) (sweep.Outcome, error) {
	network, err := expander.ExpandNetwork(cidr)
	if err != nil {
		return sweep.Outcome{}, err
	}
	if concurrency <= 0 {
		concurrency = e.options.Concurrency
	}

	targets, err := network.Targets(e.options.MaxSweepHosts)
	if err != nil {
		return sweep.Outcome{}, err
	}

	plan, err := sweep.NewPlan(targets, concurrency, e.options.SweepTimeout)
	if err != nil {
		return sweep.Outcome{}, err
	}
	if e.options.Prioritize {
		plan, err = plan.WithOrder(expander.DispatchOrder(targets, network.Prefix()))
		if err != nil {
			return sweep.Outcome{}, err
		}
	}

	return e.coordinator.Run(ctx, plan, types.Ping, nil), nil
}

// Resolve performs a single forward lookup of hostname
func (e *Engine) Resolve(ctx context.Context, hostname string) (types.Lookup, error) {
	return e.resolver.Resolve(ctx, hostname)
}

func (e *Engine) resolveHost(ctx context.Context, host string) (string, error) {
	lookup, err := e.resolver.Resolve(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	addr, ok := lookup.First()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrHostNotFound, host)
	}
	return addr.String(), nil
}
