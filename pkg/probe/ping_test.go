package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// helperCommand re-executes the test binary as a fake ping in the given mode
func helperCommand(mode string, seen *[]string) CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if seen != nil {
			*seen = append([]string{name}, args...)
		}
		cmdArgs := append([]string{"-test.run=TestHelperPingProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cmdArgs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "PING_HELPER_MODE="+mode)
		return cmd
	}
}

func TestHelperPingProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("PING_HELPER_MODE") {
	case "reply":
		fmt.Println("64 bytes from 127.0.0.1: icmp_seq=1 ttl=64 time=0.045 ms")
		fmt.Println("2 packets transmitted, 2 received, 0% packet loss, time 1001ms")
		os.Exit(0)
	case "partial":
		fmt.Println("64 bytes from 127.0.0.1: icmp_seq=2 ttl=64 time=0.051 ms")
		fmt.Println("4 packets transmitted, 3 received, 25% packet loss, time 3004ms")
		os.Exit(1)
	case "noreply":
		fmt.Println("2 packets transmitted, 0 received, 100% packet loss, time 1001ms")
		os.Exit(1)
	case "unreachable":
		fmt.Println("From 10.0.0.1 icmp_seq=1 Destination Host Unreachable")
		fmt.Println("1 packets transmitted, 0 received, +1 errors, 100% packet loss")
		os.Exit(1)
	case "error":
		fmt.Fprintln(os.Stderr, "ping: unknown host")
		os.Exit(2)
	case "hang":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	}
	os.Exit(3)
}

func pingRequest(host string, count int, timeout time.Duration) types.ProbeRequest {
	return types.ProbeRequest{Target: types.NewTarget(host, 0), Kind: types.Ping, Timeout: timeout, Count: count}
}

func TestSystemPingerVerdicts(t *testing.T) {
	tests := []struct {
		mode        string
		wantSuccess bool
		wantClass   types.ErrorClass
		wantReplies int
		wantOutput  string
	}{
		{mode: "reply", wantSuccess: true, wantReplies: 2, wantOutput: "icmp_seq=1"},
		{mode: "partial", wantSuccess: true, wantReplies: 3, wantOutput: "25% packet loss"},
		{mode: "noreply", wantClass: types.ClassTimeout, wantOutput: "100% packet loss"},
		{mode: "unreachable", wantClass: types.ClassUnreachable, wantOutput: "Destination Host Unreachable"},
		{mode: "error", wantClass: types.ClassOther, wantOutput: "unknown host"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			pinger := &SystemPinger{Binary: "ping", Command: helperCommand(tt.mode, nil)}
			result := pinger.Probe(context.Background(), pingRequest("127.0.0.1", 2, 10*time.Second))

			if result.Success != tt.wantSuccess {
				t.Fatalf("Probe() success = %v, want %v (err %v)", result.Success, tt.wantSuccess, result.Err)
			}
			if !tt.wantSuccess && result.Err.Class != tt.wantClass {
				t.Errorf("Probe() class = %s, want %s", result.Err.Class, tt.wantClass)
			}
			if !strings.Contains(result.Output, tt.wantOutput) {
				t.Errorf("Probe() output = %q, want it to contain %q", result.Output, tt.wantOutput)
			}
			if result.Replies != tt.wantReplies {
				t.Errorf("Probe() replies = %d, want %d", result.Replies, tt.wantReplies)
			}
		})
	}
}

func TestSystemPingerDeadline(t *testing.T) {
	timeout := 300 * time.Millisecond
	pinger := &SystemPinger{Command: helperCommand("hang", nil)}

	start := time.Now()
	result := pinger.Probe(context.Background(), pingRequest("127.0.0.1", 1, timeout))
	elapsed := time.Since(start)

	if result.Success {
		t.Fatal("Probe() succeeded for a hung ping")
	}
	if !errors.Is(result.Err, types.ErrProbeTimeout) {
		t.Errorf("Probe() error = %v, want timeout", result.Err)
	}
	if elapsed > timeout+waitDelay+time.Second {
		t.Errorf("Probe() took %v after a %v timeout", elapsed, timeout)
	}
}

func TestSystemPingerPassesArguments(t *testing.T) {
	var seen []string
	pinger := &SystemPinger{Binary: "ping", Command: helperCommand("reply", &seen)}
	_ = pinger.Probe(context.Background(), pingRequest("192.0.2.10", 3, 2*time.Second))

	if len(seen) == 0 || seen[0] != "ping" {
		t.Fatalf("command = %v, want ping binary", seen)
	}
	if seen[len(seen)-1] != "192.0.2.10" {
		t.Errorf("last argument = %s, want host", seen[len(seen)-1])
	}
	if want := PingArgs(3, 2*time.Second); !slices.Equal(seen[1:len(seen)-1], want) {
		t.Errorf("arguments = %v, want %v", seen[1:len(seen)-1], want)
	}
}

func TestSystemPingerInvalidRequest(t *testing.T) {
	called := false
	pinger := &SystemPinger{Command: func(ctx context.Context, name string, args ...string) *exec.Cmd {
		called = true
		return exec.CommandContext(ctx, name, args...)
	}}

	result := pinger.Probe(context.Background(), pingRequest("127.0.0.1", 0, time.Second))
	if result.Success || result.Err.Class != types.ClassOther {
		t.Errorf("Probe() = %+v, want class other", result)
	}
	if called {
		t.Error("Probe() spawned a process for an invalid request")
	}
}

func TestPingArgs(t *testing.T) {
	tests := []struct {
		count   int
		timeout time.Duration
		linux   []string
		darwin  []string
		windows []string
	}{
		{
			count:   4,
			timeout: 10 * time.Second,
			linux:   []string{"-c", "4", "-W", "10"},
			darwin:  []string{"-c", "4", "-t", "10"},
			windows: []string{"-n", "4", "-w", "10000"},
		},
		{
			count:   1,
			timeout: 1500 * time.Millisecond,
			linux:   []string{"-c", "1", "-W", "2"},
			darwin:  []string{"-c", "1", "-t", "2"},
			windows: []string{"-n", "1", "-w", "1500"},
		},
		{
			count:   1,
			timeout: 200 * time.Millisecond,
			linux:   []string{"-c", "1", "-W", "1"},
			darwin:  []string{"-c", "1", "-t", "1"},
			windows: []string{"-n", "1", "-w", "200"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.timeout.String(), func(t *testing.T) {
			want := tt.linux
			switch runtime.GOOS {
			case "darwin":
				want = tt.darwin
			case "windows":
				want = tt.windows
			}
			if got := PingArgs(tt.count, tt.timeout); !slices.Equal(got, want) {
				t.Errorf("PingArgs(%d, %v) = %v, want %v", tt.count, tt.timeout, got, want)
			}
		})
	}
}

func TestParseReplies(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{name: "linux", output: "4 packets transmitted, 3 received, 25% packet loss", want: 3},
		{name: "darwin", output: "4 packets transmitted, 4 packets received, 0.0% packet loss", want: 4},
		{name: "windows", output: "Packets: Sent = 4, Received = 2, Lost = 2 (50% loss)", want: 2},
		{name: "no statistics", output: "ping: unknown host", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseReplies(tt.output); got != tt.want {
				t.Errorf("parseReplies() = %d, want %d", got, tt.want)
			}
		})
	}
}
