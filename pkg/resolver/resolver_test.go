package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

// startServer runs an in-process DNS server answering from a fixed zone
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]

		switch q.Name {
		case "host.test.":
			if q.Qtype == dns.TypeA {
				rr, _ := dns.NewRR("host.test. 60 IN A 192.0.2.10")
				m.Answer = append(m.Answer, rr)
			}
			if q.Qtype == dns.TypeAAAA {
				rr, _ := dns.NewRR("host.test. 60 IN AAAA 2001:db8::10")
				m.Answer = append(m.Answer, rr)
			}
		case "v4only.test.":
			if q.Qtype == dns.TypeA {
				rr, _ := dns.NewRR("v4only.test. 60 IN A 192.0.2.11")
				m.Answer = append(m.Answer, rr)
			}
		case "empty.test.":
			// name exists without address records
		case "broken.test.":
			m.Rcode = dns.RcodeServerFailure
		default:
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = server.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() {
		_ = server.Shutdown()
	})

	return pc.LocalAddr().String()
}

// deadAddr returns a loopback UDP address nothing listens on
func deadAddr(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := pc.LocalAddr().String()
	_ = pc.Close()
	return addr
}

func systemFor(addr string) *System {
	return &System{Resolver: &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: 500 * time.Millisecond}
			return d.DialContext(ctx, "udp", addr)
		},
	}}
}

func TestResolve(t *testing.T) {
	addr := startServer(t)
	resolvers := map[string]Resolver{
		"server": &Server{Addr: addr, Timeout: time.Second},
		"system": systemFor(addr),
	}

	tests := []struct {
		hostname  string
		wantFound bool
		wantAddrs []string
	}{
		{hostname: "host.test", wantFound: true, wantAddrs: []string{"192.0.2.10", "2001:db8::10"}},
		{hostname: "v4only.test", wantFound: true, wantAddrs: []string{"192.0.2.11"}},
		{hostname: "empty.test", wantFound: false},
		{hostname: "definitely-invalid.invalid", wantFound: false},
		{hostname: "198.51.100.7", wantFound: true, wantAddrs: []string{"198.51.100.7"}},
		{hostname: "2001:db8::99", wantFound: true, wantAddrs: []string{"2001:db8::99"}},
	}

	for name, r := range resolvers {
		for _, tt := range tests {
			t.Run(name+"/"+tt.hostname, func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				lookup, err := r.Resolve(ctx, tt.hostname)
				if err != nil {
					t.Fatalf("Resolve(%s) unexpected error: %v", tt.hostname, err)
				}
				if lookup.Found != tt.wantFound {
					t.Fatalf("Resolve(%s) found = %v, want %v", tt.hostname, lookup.Found, tt.wantFound)
				}
				if lookup.Hostname != tt.hostname {
					t.Errorf("Resolve(%s) hostname = %s", tt.hostname, lookup.Hostname)
				}

				var got []string
				for _, a := range lookup.Addresses {
					got = append(got, a.String())
				}
				slices.Sort(got)
				if !slices.Equal(got, tt.wantAddrs) {
					t.Errorf("Resolve(%s) addresses = %v, want %v", tt.hostname, got, tt.wantAddrs)
				}
			})
		}
	}
}

func TestServerFailures(t *testing.T) {
	addr := startServer(t)

	tests := []struct {
		name     string
		server   *Server
		hostname string
	}{
		{name: "servfail", server: &Server{Addr: addr, Timeout: time.Second}, hostname: "broken.test"},
		{name: "unreachable server", server: &Server{Addr: deadAddr(t), Timeout: 300 * time.Millisecond}, hostname: "host.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.server.Resolve(context.Background(), tt.hostname)
			var failure *types.ResolverFailure
			if !errors.As(err, &failure) {
				t.Fatalf("Resolve() error = %v, want *ResolverFailure", err)
			}
			if failure.Hostname != tt.hostname || failure.Server != tt.server.Addr {
				t.Errorf("failure = %+v", failure)
			}
		})
	}
}

func TestSystemUnreachableResolver(t *testing.T) {
	r := &System{Resolver: &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("resolver offline")
		},
	}}

	_, err := r.Resolve(context.Background(), "host.test")
	var failure *types.ResolverFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Resolve() error = %v, want *ResolverFailure", err)
	}
}

func TestResolveEmptyHostname(t *testing.T) {
	for _, r := range []Resolver{NewSystem(), NewServer("127.0.0.1")} {
		_, err := r.Resolve(context.Background(), " ")
		var verr *types.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%T.Resolve() error = %v, want *ValidationError", r, err)
		}
	}
}

func TestNewServerDefaultPort(t *testing.T) {
	tests := map[string]string{
		"192.0.2.53":        "192.0.2.53:53",
		"192.0.2.53:5353":   "192.0.2.53:5353",
		"2001:db8::53":      "[2001:db8::53]:53",
		"[2001:db8::53]:53": "[2001:db8::53]:53",
	}
	for in, want := range tests {
		if got := NewServer(in).Addr; got != want {
			t.Errorf("NewServer(%s).Addr = %s, want %s", in, got, want)
		}
	}
}

func TestLiteralUnmapsIPv4(t *testing.T) {
	lookup, ok := literal("::ffff:192.0.2.1")
	if !ok || lookup.Addresses[0] != netip.MustParseAddr("192.0.2.1") {
		t.Errorf("literal() = %+v, %v", lookup, ok)
	}
}
