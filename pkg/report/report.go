package report

import (
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// OperationCounts tallies the probes of one operation
type OperationCounts struct {
	Probes    int `json:"probes"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// OpenPort is a port that accepted a TCP handshake
type OpenPort struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Report is a summary of a session at a point in time
type Report struct {
	SessionID       string                        `json:"session_id"`
	Started         time.Time                     `json:"started"`
	Generated       time.Time                     `json:"generated"`
	ProbesIssued    int                           `json:"probes_issued"`
	Successes       int                           `json:"successes"`
	Failures        int                           `json:"failures"`
	Operations      map[Operation]OperationCounts `json:"operations"`
	FailuresByClass map[string]int                `json:"failures_by_class"`
	ReachableHosts  []string                      `json:"reachable_hosts"`
	HostsUp         int                           `json:"hosts_up"`
	OpenPorts       []OpenPort                    `json:"open_ports"`
	LookupsIssued   int                           `json:"lookups_issued"`
	LookupsResolved int                           `json:"lookups_resolved"`
	Truncated       bool                          `json:"truncated"`
	TruncatedOps    []Operation                   `json:"truncated_operations,omitempty"`
	Entries         []Entry                       `json:"entries"`
}

// Summarize folds the log recorded so far into a Report. It does not
// modify the session and can be called at any time.
func (s *Session) Summarize() Report {
	s.mu.Lock()
	entries := slices.Clone(s.entries)
	truncated := slices.Clone(s.truncated)
	s.mu.Unlock()

	report := Report{
		SessionID:       s.id,
		Started:         s.started,
		Generated:       time.Now(),
		Operations:      make(map[Operation]OperationCounts),
		FailuresByClass: make(map[string]int),
		ReachableHosts:  []string{},
		OpenPorts:       []OpenPort{},
		Truncated:       len(truncated) > 0,
		TruncatedOps:    truncated,
		Entries:         entries,
	}
	if report.Entries == nil {
		report.Entries = []Entry{}
	}

	var hosts []string
	seenPorts := make(map[OpenPort]struct{})
	for _, entry := range entries {
		if entry.Lookup != nil {
			report.LookupsIssued++
			if entry.Lookup.Found {
				report.LookupsResolved++
			}
			continue
		}
		if entry.Result == nil {
			continue
		}

		result := entry.Result
		counts := report.Operations[entry.Operation]
		counts.Probes++
		report.ProbesIssued++
		if result.Success {
			counts.Successes++
			report.Successes++
		} else {
			counts.Failures++
			report.Failures++
			class := types.ClassOther
			if result.Err != nil {
				class = result.Err.Class
			}
			report.FailuresByClass[class.String()]++
		}
		report.Operations[entry.Operation] = counts

		if !result.Success {
			continue
		}
		switch entry.Operation {
		case OperationPing, OperationSweep:
			hosts = append(hosts, result.Request.Target.Host)
		case OperationScan:
			port := OpenPort{Host: result.Request.Target.Host, Port: result.Request.Target.Port}
			if _, ok := seenPorts[port]; !ok {
				seenPorts[port] = struct{}{}
				report.OpenPorts = append(report.OpenPorts, port)
			}
		}
	}

	if len(hosts) > 0 {
		report.ReachableHosts = sliceutil.Dedupe(hosts)
		slices.SortFunc(report.ReachableHosts, compareHosts)
	}
	report.HostsUp = len(report.ReachableHosts)

	return report
}

// compareHosts orders IP addresses numerically and anything else by name after them
func compareHosts(a, b string) int {
	addrA, errA := netip.ParseAddr(a)
	addrB, errB := netip.ParseAddr(b)
	switch {
	case errA == nil && errB == nil:
		return addrA.Compare(addrB)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
