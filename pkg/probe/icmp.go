package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
	mapsutil "github.com/projectdiscovery/utils/maps"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// DefaultEchoInterval is the gap between consecutive echo requests
	DefaultEchoInterval = time.Second

	protocolICMP   = 1
	protocolICMPv6 = 58
)

var echoCounter atomic.Uint32

// ICMPPinger sends echo requests directly on an ICMP socket instead of
// spawning the ping utility. Raw sockets need root or CAP_NET_RAW; the
// unprivileged mode uses datagram ICMP sockets where the kernel allows them.
type ICMPPinger struct {
	Privileged bool
	// Interval between echoes, DefaultEchoInterval when zero
	Interval time.Duration
}

// Probe sends req.Count echoes to req.Target.Host and succeeds on the first reply.
// The latency is the round trip of the first reply.
func (p *ICMPPinger) Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult {
	if err := req.Validate(); err != nil {
		return invalid(req, err)
	}

	target, err := netip.ParseAddr(req.Target.Host)
	if err != nil {
		return types.Failed(req, 0, types.ClassOther, "icmp ping requires an ip address: "+req.Target.Host)
	}
	target = target.Unmap()

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.listen(target.Is6())
	if err != nil {
		return types.Failed(req, time.Since(start), types.ClassOther, fmt.Sprintf("failed to open icmp socket: %v", err))
	}
	defer func() {
		_ = conn.Close()
	}()

	// wake a blocked read as soon as the context ends
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	id := int((uint32(os.Getpid()) + echoCounter.Add(1)) & 0xffff)
	pending := mapsutil.NewSyncLockMap[int, time.Time]()

	sendErr := make(chan error, 1)
	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		err := p.sendEchoes(ctx, conn, target, id, req.Count, pending)
		if err != nil {
			cancel()
		}
		sendErr <- err
	}()

	rtt, replies := p.receiveReplies(conn, target, id, req.Count, pending)
	cancel()
	<-senderDone
	elapsed := time.Since(start)

	if replies > 0 {
		result := types.Succeeded(req, rtt)
		result.Replies = replies
		return result
	}

	if err := <-sendErr; err != nil {
		return types.Failed(req, elapsed, classifyDialError(err), fmt.Sprintf("failed to send echo request: %v", err))
	}
	return types.Failed(req, elapsed, types.ClassTimeout, "no echo reply from "+target.String())
}

func (p *ICMPPinger) listen(isIPv6 bool) (*icmp.PacketConn, error) {
	switch {
	case p.Privileged && isIPv6:
		return icmp.ListenPacket("ip6:ipv6-icmp", "::")
	case p.Privileged:
		return icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	case isIPv6:
		return icmp.ListenPacket("udp6", "::")
	default:
		return icmp.ListenPacket("udp4", "0.0.0.0")
	}
}

func (p *ICMPPinger) destination(target netip.Addr) net.Addr {
	if p.Privileged {
		return &net.IPAddr{IP: target.AsSlice()}
	}
	return &net.UDPAddr{IP: target.AsSlice()}
}

// sendEchoes writes count echo requests one interval apart. It stops early
// when the context ends and reports the first write error.
func (p *ICMPPinger) sendEchoes(ctx context.Context, conn *icmp.PacketConn, target netip.Addr, id, count int, pending *mapsutil.SyncLockMap[int, time.Time]) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultEchoInterval
	}

	var msgType icmp.Type = ipv4.ICMPTypeEcho
	if target.Is6() {
		msgType = ipv6.ICMPTypeEchoRequest
	}
	dst := p.destination(target)

	for seq := 1; seq <= count; seq++ {
		msg := &icmp.Message{
			Type: msgType,
			Code: 0,
			Body: &icmp.Echo{
				ID:   id,
				Seq:  seq,
				Data: []byte("netdiag-echo"),
			},
		}
		msgBytes, err := msg.Marshal(nil)
		if err != nil {
			return fmt.Errorf("failed to marshal ICMP message: %w", err)
		}

		_ = pending.Set(seq, time.Now())
		if _, err := conn.WriteTo(msgBytes, dst); err != nil {
			pending.Delete(seq)
			return err
		}

		if seq == count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	return nil
}

// receiveReplies reads until count replies arrived or the read deadline fires.
// It returns the round trip of the first reply and the number of replies.
func (p *ICMPPinger) receiveReplies(conn *icmp.PacketConn, target netip.Addr, id, count int, pending *mapsutil.SyncLockMap[int, time.Time]) (time.Duration, int) {
	echoReplyType := icmp.Type(ipv4.ICMPTypeEchoReply)
	protocol := protocolICMP
	if target.Is6() {
		echoReplyType = ipv6.ICMPTypeEchoReply
		protocol = protocolICMPv6
	}

	var firstRTT time.Duration
	replies := 0
	buf := make([]byte, 1500)
	for replies < count {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}

		rm, err := icmp.ParseMessage(protocol, buf[:n])
		if err != nil || rm.Type != echoReplyType {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		// datagram sockets get their echo id rewritten by the kernel
		if p.Privileged && echo.ID != id {
			continue
		}
		if from, ok := peerAddr(peer); !ok || from != target {
			continue
		}

		sent, exists := pending.Get(echo.Seq)
		if !exists {
			continue
		}
		pending.Delete(echo.Seq)

		if replies == 0 {
			firstRTT = time.Since(sent)
		}
		replies++
	}
	return firstRTT, replies
}

func peerAddr(addr net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPAddr:
		ip = v.IP
	case *net.UDPAddr:
		ip = v.IP
	default:
		return netip.Addr{}, false
	}
	parsed, ok := netip.AddrFromSlice(ip)
	return parsed.Unmap(), ok
}
