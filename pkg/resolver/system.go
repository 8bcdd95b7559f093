package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// System resolves names through the platform resolver
type System struct {
	Resolver *net.Resolver
}

// NewSystem creates a resolver backed by net.DefaultResolver
func NewSystem() *System {
	return &System{Resolver: net.DefaultResolver}
}

// Resolve looks hostname up once, without retries
func (s *System) Resolve(ctx context.Context, hostname string) (types.Lookup, error) {
	if err := validateHostname(hostname); err != nil {
		return types.Lookup{}, err
	}
	if lookup, ok := literal(hostname); ok {
		return lookup, nil
	}

	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}

	addrs, err := r.LookupNetIP(ctx, "ip", hostname)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return notFound(hostname), nil
		}
		return types.Lookup{}, &types.ResolverFailure{Hostname: hostname, Err: err}
	}
	if len(addrs) == 0 {
		return notFound(hostname), nil
	}

	unmapped := make([]netip.Addr, 0, len(addrs))
	for _, addr := range addrs {
		unmapped = append(unmapped, addr.Unmap())
	}
	return types.Lookup{
		Hostname:  hostname,
		Addresses: unmapped,
		Found:     true,
		Timestamp: time.Now(),
	}, nil
}
