package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/netdiag/pkg/report"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// writeJSONReport writes the report as indented JSON
func writeJSONReport(w io.Writer, rep report.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeTextReport writes the report as markdown, colored by au
func writeTextReport(w io.Writer, rep report.Report, au *aurora.Aurora) error {
	if au == nil {
		au = aurora.New(aurora.WithColors(false))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", au.Bold("# Network Analysis Report"))
	fmt.Fprintf(&sb, "Generated: %s\n", rep.Generated.Format(reportTimeLayout))
	fmt.Fprintf(&sb, "Session: %s\n", rep.SessionID)
	fmt.Fprintf(&sb, "Duration: %s\n\n", rep.Generated.Sub(rep.Started).Round(time.Millisecond))

	fmt.Fprintf(&sb, "%s\n", au.Bold("## Summary"))
	fmt.Fprintf(&sb, "- Scans completed: %s\n", humanize.Comma(int64(rep.ProbesIssued)))
	fmt.Fprintf(&sb, "- Hosts reached: %s\n", humanize.Comma(int64(rep.HostsUp)))
	fmt.Fprintf(&sb, "- Successful probes: %s\n", humanize.Comma(int64(rep.Successes)))
	fmt.Fprintf(&sb, "- Failed probes: %s%s\n", humanize.Comma(int64(rep.Failures)), failureBreakdown(rep.FailuresByClass))
	fmt.Fprintf(&sb, "- Open ports: %s\n", humanize.Comma(int64(len(rep.OpenPorts))))
	if rep.LookupsIssued > 0 {
		fmt.Fprintf(&sb, "- Lookups resolved: %d/%d\n", rep.LookupsResolved, rep.LookupsIssued)
	}
	if rep.Truncated {
		ops := make([]string, 0, len(rep.TruncatedOps))
		for _, op := range rep.TruncatedOps {
			ops = append(ops, string(op))
		}
		fmt.Fprintf(&sb, "- %s: %s\n", au.Yellow("Truncated"), strings.Join(ops, ", "))
	}

	fmt.Fprintf(&sb, "\n%s\n", au.Bold("## Results"))
	if len(rep.ReachableHosts) > 0 {
		sb.WriteString("### Reachable hosts\n")
		for _, host := range rep.ReachableHosts {
			fmt.Fprintf(&sb, "- %s\n", au.Green(host))
		}
	}
	if len(rep.OpenPorts) > 0 {
		sb.WriteString("### Open ports\n")
		for _, port := range rep.OpenPorts {
			fmt.Fprintf(&sb, "- %s\n", au.Green(fmt.Sprintf("%s:%d", port.Host, port.Port)))
		}
	}
	if rep.LookupsIssued > 0 {
		sb.WriteString("### Lookups\n")
		for _, entry := range rep.Entries {
			if entry.Lookup == nil {
				continue
			}
			if !entry.Lookup.Found {
				fmt.Fprintf(&sb, "- %s: %s\n", entry.Lookup.Hostname, au.Red("not found"))
				continue
			}
			addrs := make([]string, 0, len(entry.Lookup.Addresses))
			for _, addr := range entry.Lookup.Addresses {
				addrs = append(addrs, addr.String())
			}
			fmt.Fprintf(&sb, "- %s: %s\n", entry.Lookup.Hostname, strings.Join(addrs, ", "))
		}
	}
	if len(rep.ReachableHosts) == 0 && len(rep.OpenPorts) == 0 && rep.LookupsIssued == 0 {
		sb.WriteString("No hosts reached\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// failureBreakdown renders " (refused: 2, timeout: 5)" or nothing
func failureBreakdown(byClass map[string]int) string {
	if len(byClass) == 0 {
		return ""
	}
	parts := make([]string, 0, len(byClass))
	for _, class := range slices.Sorted(maps.Keys(byClass)) {
		parts = append(parts, fmt.Sprintf("%s: %d", class, byClass[class]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
