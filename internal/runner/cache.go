package runner

import (
	"context"
	"strings"
	"time"

	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/netdiag/pkg/resolver"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

const dnsCacheSize = 1024

// cachingResolver remembers successful lookups for the lifetime of a run
// so a host named by several operations resolves once
type cachingResolver struct {
	resolver resolver.Resolver
	cache    gcache.Cache[string, types.Lookup]
}

// newCachingResolver wraps r with an LRU cache, or returns r when ttl is zero
func newCachingResolver(r resolver.Resolver, ttl time.Duration) resolver.Resolver {
	if ttl <= 0 {
		return r
	}
	return &cachingResolver{
		resolver: r,
		cache: gcache.New[string, types.Lookup](dnsCacheSize).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

func (c *cachingResolver) Resolve(ctx context.Context, hostname string) (types.Lookup, error) {
	key := strings.ToLower(strings.TrimSpace(hostname))
	if lookup, err := c.cache.Get(key); err == nil {
		return lookup, nil
	}

	lookup, err := c.resolver.Resolve(ctx, hostname)
	if err != nil {
		return lookup, err
	}
	// negative answers are not cached
	if lookup.Found {
		_ = c.cache.Set(key, lookup)
	}
	return lookup, nil
}
