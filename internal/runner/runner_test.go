package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/netdiag/pkg/netdiag"
	"github.com/projectdiscovery/netdiag/pkg/probe"
	"github.com/projectdiscovery/netdiag/pkg/report"
	"github.com/projectdiscovery/netdiag/pkg/types"
)

// fakeNetwork answers pings from 127.0.0.1 and 10.0.0.1 and accepts port 22
var fakeNetwork = probe.ProberFunc(func(_ context.Context, req types.ProbeRequest) types.ProbeResult {
	switch req.Kind {
	case types.Ping:
		if req.Target.Host == "127.0.0.1" || req.Target.Host == "10.0.0.1" {
			result := types.Succeeded(req, time.Millisecond)
			result.Replies = req.Count
			return result
		}
		return types.Failed(req, req.Timeout, types.ClassTimeout, "no reply")
	default:
		if req.Target.Port == 22 {
			return types.Succeeded(req, time.Millisecond)
		}
		return types.Failed(req, time.Millisecond, types.ClassRefused, "connection refused")
	}
})

type hostsResolver map[string]string

func (h hostsResolver) Resolve(_ context.Context, hostname string) (types.Lookup, error) {
	lookup := types.Lookup{Hostname: hostname, Timestamp: time.Now()}
	if addr, err := netip.ParseAddr(hostname); err == nil {
		lookup.Addresses, lookup.Found = []netip.Addr{addr}, true
		return lookup, nil
	}
	if addr, ok := h[hostname]; ok {
		lookup.Addresses, lookup.Found = []netip.Addr{netip.MustParseAddr(addr)}, true
	}
	return lookup, nil
}

func testEngine() *netdiag.Engine {
	return netdiag.New(netdiag.Options{
		Prober:      fakeNetwork,
		Resolver:    hostsResolver{"localhost": "127.0.0.1"},
		Concurrency: 4,
	})
}

func allOperations() *Options {
	options := validOptions()
	options.Ping = goflags.StringSlice{"localhost", "missing.test"}
	options.DNS = goflags.StringSlice{"localhost", "missing.test"}
	options.Sweep = goflags.StringSlice{"10.0.0.0/30"}
	options.Scan = goflags.StringSlice{"localhost"}
	options.Ports = "21-23"
	options.JSON = true
	return options
}

func newTestRunner(options *Options) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Runner{
		options: options,
		engine:  testEngine(),
		session: report.NewSession(),
		out:     out,
	}, out
}

type reportSummary struct {
	ProbesIssued    int               `json:"probes_issued"`
	Successes       int               `json:"successes"`
	ReachableHosts  []string          `json:"reachable_hosts"`
	OpenPorts       []report.OpenPort `json:"open_ports"`
	LookupsIssued   int               `json:"lookups_issued"`
	LookupsResolved int               `json:"lookups_resolved"`
	Truncated       bool              `json:"truncated"`
	TruncatedOps    []string          `json:"truncated_operations"`
}

func TestRunAllOperations(t *testing.T) {
	r, out := newTestRunner(allOperations())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	var got reportSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out.String())
	}

	// two pings, two sweep hosts, three ports
	if got.ProbesIssued != 7 {
		t.Errorf("ProbesIssued = %d, want 7", got.ProbesIssued)
	}
	if got.Successes != 3 {
		t.Errorf("Successes = %d, want 3", got.Successes)
	}
	if strings.Join(got.ReachableHosts, ",") != "10.0.0.1,127.0.0.1" {
		t.Errorf("ReachableHosts = %v, want [10.0.0.1 127.0.0.1]", got.ReachableHosts)
	}
	if len(got.OpenPorts) != 1 || got.OpenPorts[0] != (report.OpenPort{Host: "127.0.0.1", Port: 22}) {
		t.Errorf("OpenPorts = %v, want [127.0.0.1:22]", got.OpenPorts)
	}
	if got.LookupsIssued != 2 || got.LookupsResolved != 1 {
		t.Errorf("lookups = %d/%d, want 1/2", got.LookupsResolved, got.LookupsIssued)
	}
	if got.Truncated {
		t.Error("report truncated without cancellation")
	}
}

func TestRunCancelled(t *testing.T) {
	r, out := newTestRunner(allOperations())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	var got reportSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if !got.Truncated {
		t.Error("report not truncated after cancellation")
	}
	if strings.Join(got.TruncatedOps, ",") != "ping,dns,sweep,scan" {
		t.Errorf("TruncatedOps = %v", got.TruncatedOps)
	}
	if got.ProbesIssued != 0 {
		t.Errorf("ProbesIssued = %d, want 0", got.ProbesIssued)
	}
}

func TestRunSkipsInvalidInput(t *testing.T) {
	options := validOptions()
	options.Ping = nil
	options.Sweep = goflags.StringSlice{"10.0.0.1"}
	options.Scan = goflags.StringSlice{"localhost"}
	options.Ports = "0-10"
	r, out := newTestRunner(options)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "- Scans completed: 0\n") {
		t.Errorf("report = %s", out.String())
	}
}

func TestRunWritesReportFile(t *testing.T) {
	options := validOptions()
	options.Output = filepath.Join(t.TempDir(), "report.md")
	r, out := newTestRunner(options)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("report also written to stdout: %q", out.String())
	}

	data, err := os.ReadFile(options.Output)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Network Analysis Report\n") {
		t.Errorf("report file = %q", data)
	}
	if !strings.Contains(string(data), "- 127.0.0.1\n") {
		t.Errorf("report file does not list the pinged host:\n%s", data)
	}
}

func TestRunStreamsResultLog(t *testing.T) {
	options := allOperations()
	options.JSONL = filepath.Join(t.TempDir(), "results.jsonl")

	r, err := NewRunner(options)
	if err != nil {
		t.Fatalf("NewRunner() unexpected error: %v", err)
	}
	r.engine = testEngine()
	r.out = &bytes.Buffer{}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	file, err := os.Open(options.JSONL)
	if err != nil {
		t.Fatalf("result log not written: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	// seven probes and two lookups
	if lines != 9 {
		t.Errorf("result log holds %d lines, want 9", lines)
	}
}

func TestNewRunnerBadResultLog(t *testing.T) {
	options := validOptions()
	options.JSONL = filepath.Join(t.TempDir(), "missing", "results.jsonl")
	if _, err := NewRunner(options); err == nil {
		t.Error("NewRunner() accepted an unwritable result log")
	}
}

func TestSweepNetworksDedupes(t *testing.T) {
	options := validOptions()
	options.Sweep = goflags.StringSlice{"10.0.0.0/24", "10.0.0.0/24", "192.168.0.0/30"}
	r, _ := newTestRunner(options)

	got := r.sweepNetworks()
	if strings.Join(got, ",") != "10.0.0.0/24,192.168.0.0/30" {
		t.Errorf("sweepNetworks() = %v", got)
	}
}
