package expander

import (
	"net"
	"net/netip"
)

// LocalNetworks returns the private IPv4 networks of the local interfaces as /24 blocks
func LocalNetworks() ([]netip.Prefix, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var addrs []net.Addr
	for _, iface := range interfaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addrs = append(addrs, ifaceAddrs...)
	}

	return privateNetworks24(addrs), nil
}

// privateNetworks24 normalizes private IPv4 interface addresses to their /24,
// keeping the first occurrence of each block.
func privateNetworks24(addrs []net.Addr) []netip.Prefix {
	var networks []netip.Prefix
	seen := make(map[netip.Prefix]struct{})

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipNet.IP.To4()
		if ip == nil || !ip.IsPrivate() {
			continue
		}

		ip4, _ := netip.AddrFromSlice(ip)
		network, err := ip4.Prefix(24)
		if err != nil {
			continue
		}

		if _, exists := seen[network]; exists {
			continue
		}
		seen[network] = struct{}{}
		networks = append(networks, network)
	}

	return networks
}
