package resolver

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Resolver performs a single forward lookup of a hostname.
// A name that does not exist yields a Lookup with Found unset and a nil
// error; a *types.ResolverFailure is returned when the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (types.Lookup, error)
}

// literal resolves IP literals to themselves
func literal(hostname string) (types.Lookup, bool) {
	addr, err := netip.ParseAddr(strings.Trim(hostname, "[]"))
	if err != nil {
		return types.Lookup{}, false
	}
	return types.Lookup{
		Hostname:  hostname,
		Addresses: []netip.Addr{addr.Unmap()},
		Found:     true,
		Timestamp: time.Now(),
	}, true
}

func validateHostname(hostname string) error {
	if strings.TrimSpace(hostname) == "" {
		return &types.ValidationError{Field: "hostname", Message: "hostname is required"}
	}
	return nil
}

func notFound(hostname string) types.Lookup {
	return types.Lookup{Hostname: hostname, Found: false, Timestamp: time.Now()}
}
