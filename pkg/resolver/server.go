package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

// DefaultServerTimeout bounds a single query to an explicit server
const DefaultServerTimeout = 5 * time.Second

// Server resolves names by querying one DNS server directly
type Server struct {
	// Addr is the server as host:port
	Addr    string
	Timeout time.Duration
}

// NewServer creates a resolver for addr; port 53 is assumed when addr has none
func NewServer(addr string) *Server {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}
	return &Server{Addr: addr, Timeout: DefaultServerTimeout}
}

// Resolve queries A then AAAA records for hostname
func (s *Server) Resolve(ctx context.Context, hostname string) (types.Lookup, error) {
	if err := validateHostname(hostname); err != nil {
		return types.Lookup{}, err
	}
	if lookup, ok := literal(hostname); ok {
		return lookup, nil
	}

	var addrs []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answer, err := s.exchange(ctx, hostname, qtype)
		if err != nil {
			return types.Lookup{}, &types.ResolverFailure{Hostname: hostname, Server: s.Addr, Err: err}
		}

		switch answer.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return notFound(hostname), nil
		default:
			return types.Lookup{}, &types.ResolverFailure{
				Hostname: hostname,
				Server:   s.Addr,
				Err:      fmt.Errorf("server answered %s", dns.RcodeToString[answer.Rcode]),
			}
		}

		for _, rr := range answer.Answer {
			switch record := rr.(type) {
			case *dns.A:
				if addr, ok := netip.AddrFromSlice(record.A); ok {
					addrs = append(addrs, addr.Unmap())
				}
			case *dns.AAAA:
				if addr, ok := netip.AddrFromSlice(record.AAAA); ok {
					addrs = append(addrs, addr)
				}
			}
		}
	}

	if len(addrs) == 0 {
		return notFound(hostname), nil
	}
	return types.Lookup{
		Hostname:  hostname,
		Addresses: addrs,
		Found:     true,
		Timestamp: time.Now(),
	}, nil
}

// exchange sends one query over UDP, repeating it over TCP when the answer is truncated
func (s *Server) exchange(ctx context.Context, hostname string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), qtype)
	msg.RecursionDesired = true

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultServerTimeout
	}

	client := &dns.Client{Timeout: timeout}
	answer, _, err := client.ExchangeContext(ctx, msg, s.Addr)
	if err != nil {
		return nil, err
	}
	if answer.Truncated {
		client.Net = "tcp"
		answer, _, err = client.ExchangeContext(ctx, msg, s.Addr)
		if err != nil {
			return nil, err
		}
	}
	return answer, nil
}
