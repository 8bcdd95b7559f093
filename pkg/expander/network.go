package expander

import (
	"fmt"
	"iter"
	"math"
	"net"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/mapcidr"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

const maxPrealloc = 1 << 16

// Network is a parsed address block whose usable hosts can be enumerated
type Network struct {
	input  string
	prefix netip.Prefix
}

// ExpandNetwork parses cidr into a Network. Host bits set in the input are
// masked off, so "192.168.1.7/24" describes 192.168.1.0/24.
func ExpandNetwork(cidr string) (*Network, error) {
	input := strings.TrimSpace(cidr)
	if input == "" {
		return nil, &types.InvalidNetworkError{Input: cidr, Reason: "empty network"}
	}
	if !strings.Contains(input, "/") {
		return nil, &types.InvalidNetworkError{Input: cidr, Reason: "missing prefix length"}
	}

	prefix, err := netip.ParsePrefix(input)
	if err != nil {
		return nil, &types.InvalidNetworkError{Input: cidr, Reason: err.Error()}
	}

	return &Network{input: cidr, prefix: prefix.Masked()}, nil
}

// Prefix returns the normalized block
func (n *Network) Prefix() netip.Prefix {
	return n.prefix
}

func (n *Network) String() string {
	return n.prefix.String()
}

// bounds returns the first and last usable host of the block.
// IPv4 blocks up to /30 drop network and broadcast, IPv6 blocks up to /126
// drop the subnet-router anycast address only.
func (n *Network) bounds() (netip.Addr, netip.Addr) {
	first := n.prefix.Addr()
	last := lastAddr(n.prefix)

	bits := n.prefix.Bits()
	if first.Is4() {
		if bits <= 30 {
			return first.Next(), last.Prev()
		}
		return first, last
	}
	if bits <= 126 {
		return first.Next(), last
	}
	return first, last
}

// All yields the usable hosts of the block in ascending order. The sequence
// can be ranged over any number of times and stops cleanly on break.
func (n *Network) All() iter.Seq[types.Target] {
	return func(yield func(types.Target) bool) {
		first, last := n.bounds()
		for addr := first; addr.IsValid(); addr = addr.Next() {
			if !yield(types.NewTarget(addr.String(), 0)) {
				return
			}
			if addr == last {
				return
			}
		}
	}
}

// HostCount returns the number of usable hosts, saturating at math.MaxUint64
// for IPv6 blocks too large to count.
func (n *Network) HostCount() uint64 {
	hostBits := n.prefix.Addr().BitLen() - n.prefix.Bits()
	if hostBits >= 64 {
		return math.MaxUint64
	}

	total := mapcidr.AddressCountIpnet(n.ipNet())
	bits := n.prefix.Bits()
	switch {
	case n.prefix.Addr().Is4() && bits <= 30:
		return total - 2
	case n.prefix.Addr().Is6() && bits <= 126:
		return total - 1
	default:
		return total
	}
}

// Targets materializes the usable hosts. It fails when the block holds more
// than limit hosts; limit <= 0 disables the check.
func (n *Network) Targets(limit int) ([]types.Target, error) {
	count := n.HostCount()
	if limit > 0 && count > uint64(limit) {
		return nil, &types.InvalidNetworkError{
			Input:  n.input,
			Reason: fmt.Sprintf("block holds %d hosts, limit is %d", count, limit),
		}
	}

	targets := make([]types.Target, 0, min(count, maxPrealloc))
	for target := range n.All() {
		targets = append(targets, target)
	}
	return targets, nil
}

func (n *Network) ipNet() *net.IPNet {
	addr := n.prefix.Addr()
	return &net.IPNet{
		IP:   net.IP(addr.AsSlice()),
		Mask: net.CIDRMask(n.prefix.Bits(), addr.BitLen()),
	}
}

// lastAddr returns the address with every host bit of prefix set
func lastAddr(prefix netip.Prefix) netip.Addr {
	addr := prefix.Masked().Addr()
	raw := addr.AsSlice()
	bits := prefix.Bits()
	for i := range raw {
		for b := 0; b < 8; b++ {
			if i*8+b >= bits {
				raw[i] |= 1 << (7 - b)
			}
		}
	}
	last, _ := netip.AddrFromSlice(raw)
	return last
}
