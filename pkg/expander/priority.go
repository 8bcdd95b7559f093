package expander

import (
	"net/netip"
	"sort"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Priority tiers based on real-world network patterns
const (
	PriorityTier1 = 100 // .1, .254 (routers/gateways)
	PriorityTier2 = 90  // .2-.5, .250-.253 (reserved)
	PriorityTier3 = 80  // .6-.10 (early DHCP)
	PriorityTier4 = 70  // .50, .100, .150 (DHCP peaks)
	PriorityTier5 = 50  // .51-.99, .101-.149, .151-.200 (DHCP pool)
	PriorityTier6 = 20  // .11-.49, .201-.249 (long-tail)
	PriorityTier7 = 0   // network and broadcast
)

type octetRange struct {
	start, end int
	priority   int
}

var octetPriorities = []octetRange{
	{1, 1, PriorityTier1},
	{254, 254, PriorityTier1},
	{2, 5, PriorityTier2},
	{250, 253, PriorityTier2},
	{6, 10, PriorityTier3},
	{50, 50, PriorityTier4},
	{100, 100, PriorityTier4},
	{150, 150, PriorityTier4},
	{51, 99, PriorityTier5},
	{101, 149, PriorityTier5},
	{151, 200, PriorityTier5},
	{11, 49, PriorityTier6},
	{201, 249, PriorityTier6},
}

// Priority returns a score (0-100) for addr inside prefix; higher scores are
// more likely to be online. IPv6 and unparsable hosts get the long-tail tier.
func Priority(addr netip.Addr, prefix netip.Prefix) int {
	if !addr.Is4() || !prefix.Addr().Is4() {
		return PriorityTier6
	}

	if prefix.Bits() <= 30 && (addr == prefix.Masked().Addr() || addr == lastAddr(prefix)) {
		return PriorityTier7
	}

	lastOctet := int(addr.As4()[3])
	for _, r := range octetPriorities {
		if lastOctet >= r.start && lastOctet <= r.end {
			return r.priority
		}
	}
	return PriorityTier6
}

// DispatchOrder returns a permutation of target indices that visits likely
// live hosts first. Ties keep input order.
func DispatchOrder(targets []types.Target, prefix netip.Prefix) []int {
	order := make([]int, len(targets))
	scores := make([]int, len(targets))
	for i, target := range targets {
		order[i] = i
		addr, err := netip.ParseAddr(target.Host)
		if err != nil {
			scores[i] = PriorityTier6
			continue
		}
		scores[i] = Priority(addr.Unmap(), prefix)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order
}
