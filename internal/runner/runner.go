package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netdiag/pkg/expander"
	"github.com/projectdiscovery/netdiag/pkg/netdiag"
	"github.com/projectdiscovery/netdiag/pkg/probe"
	"github.com/projectdiscovery/netdiag/pkg/report"
	"github.com/projectdiscovery/netdiag/pkg/resolver"
	"github.com/projectdiscovery/netdiag/pkg/resultlog"
	"github.com/projectdiscovery/netdiag/pkg/types"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// Runner contains the internal logic of the program
type Runner struct {
	options   *Options
	engine    *netdiag.Engine
	session   *report.Session
	resultLog *resultlog.Writer
	out       io.Writer
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	var res resolver.Resolver = resolver.NewSystem()
	if options.Resolver != "" {
		res = resolver.NewServer(options.Resolver)
	}

	var prober probe.Prober = probe.NewRunner(nil, nil)
	if options.ICMP {
		prober = probe.NewRunner(nil, &probe.ICMPPinger{Privileged: options.Privileged})
	}

	r := &Runner{options: options, out: os.Stdout}
	r.engine = netdiag.New(netdiag.Options{
		Prober:        prober,
		Resolver:      newCachingResolver(res, options.DNSCacheTTL),
		PingTimeout:   options.PingTimeout,
		ScanTimeout:   options.Timeout,
		SweepTimeout:  options.SweepTimeout,
		Concurrency:   clampConcurrency(options.Concurrency),
		MaxSweepHosts: options.MaxHosts,
		Prioritize:    options.Prioritize,
	})

	var sessionOpts []report.Option
	if options.JSONL != "" {
		writer, err := resultlog.NewWriter(options.JSONL)
		if err != nil {
			return nil, err
		}
		r.resultLog = writer
		sessionOpts = append(sessionOpts, report.WithSink(writer.Append))
	}
	r.session = report.NewSession(sessionOpts...)

	return r, nil
}

// Run executes the requested operations in order and writes the report.
// Cancelling ctx stops the current operation and skips the rest, the
// report then covers what finished and is marked truncated.
func (r *Runner) Run(ctx context.Context) error {
	gologger.Verbose().Msgf("Session %s started\n", r.session.ID())

	r.runPings(ctx)
	r.runLookups(ctx)
	r.runSweeps(ctx)
	r.runScans(ctx)

	return r.writeReport(r.session.Summarize())
}

// Close flushes the result log, if any
func (r *Runner) Close() error {
	if r.resultLog == nil {
		return nil
	}
	if err := r.resultLog.Close(); err != nil {
		return err
	}
	gologger.Verbose().Msgf("Wrote %d results to %s\n", r.resultLog.Written(), r.options.JSONL)
	return nil
}

func (r *Runner) runPings(ctx context.Context) {
	for _, host := range r.options.Ping {
		if ctx.Err() != nil {
			r.session.MarkTruncated(report.OperationPing)
			return
		}

		result := r.engine.Ping(ctx, host, r.options.Count)
		if ctx.Err() != nil {
			r.session.MarkTruncated(report.OperationPing)
		}
		r.session.Record(report.OperationPing, result)

		if result.Output != "" {
			gologger.Verbose().Msgf("%s\n", strings.TrimSpace(result.Output))
		}
		if result.Success {
			gologger.Silent().Msgf("%s is up (%d/%d replies, %s)\n", host, result.Replies, r.options.Count, result.Latency.Round(time.Microsecond))
		} else {
			gologger.Silent().Msgf("%s is down: %s\n", host, result.Err)
		}
	}
}

func (r *Runner) runLookups(ctx context.Context) {
	for _, host := range r.options.DNS {
		if ctx.Err() != nil {
			r.session.MarkTruncated(report.OperationDNS)
			return
		}

		lookup, err := r.engine.Resolve(ctx, host)
		if err != nil {
			if ctx.Err() != nil {
				r.session.MarkTruncated(report.OperationDNS)
				return
			}
			gologger.Error().Msgf("Could not resolve %s: %s\n", host, err)
			lookup = types.Lookup{Hostname: host, Timestamp: time.Now()}
		}
		r.session.RecordLookup(lookup)

		if addr, ok := lookup.First(); ok {
			gologger.Silent().Msgf("%s resolves to %s\n", host, addr)
		} else {
			gologger.Silent().Msgf("Could not resolve %s\n", host)
		}
	}
}

func (r *Runner) runSweeps(ctx context.Context) {
	for _, network := range r.sweepNetworks() {
		if ctx.Err() != nil {
			r.session.MarkTruncated(report.OperationSweep)
			return
		}

		gologger.Info().Msgf("Sweeping %s\n", network)
		outcome, err := r.engine.Sweep(ctx, network, 0)
		if err != nil {
			gologger.Error().Msgf("Could not sweep %s: %s\n", network, err)
			continue
		}
		r.session.Record(report.OperationSweep, outcome.Results...)

		var reachable []string
		for _, result := range outcome.Results {
			if result.Success {
				reachable = append(reachable, result.Request.Target.Host)
				gologger.Verbose().Msgf("%s is up\n", result.Request.Target.Host)
			}
		}
		gologger.Silent().Msgf("Found %d reachable hosts in %s\n", len(reachable), network)

		if outcome.Truncated {
			r.session.MarkTruncated(report.OperationSweep)
			gologger.Warning().Msgf("Sweep of %s interrupted after %s of %s hosts\n",
				network, humanize.Comma(int64(len(outcome.Results))), humanize.Comma(int64(outcome.Total)))
			return
		}
	}
}

// sweepNetworks expands the auto keyword into the local private networks
func (r *Runner) sweepNetworks() []string {
	var networks []string
	for _, item := range r.options.Sweep {
		if !strings.EqualFold(strings.TrimSpace(item), SweepAuto) {
			networks = append(networks, item)
			continue
		}
		prefixes, err := expander.LocalNetworks()
		if err != nil {
			gologger.Error().Msgf("Could not list local networks: %s\n", err)
			continue
		}
		if len(prefixes) == 0 {
			gologger.Warning().Msgf("No private networks found on local interfaces\n")
		}
		for _, prefix := range prefixes {
			networks = append(networks, prefix.String())
		}
	}
	return sliceutil.Dedupe(networks)
}

func (r *Runner) runScans(ctx context.Context) {
	for _, host := range r.options.Scan {
		if ctx.Err() != nil {
			r.session.MarkTruncated(report.OperationScan)
			return
		}

		outcome, err := r.engine.ScanPorts(ctx, host, r.options.Ports, r.options.Timeout)
		if err != nil {
			gologger.Error().Msgf("Could not scan %s: %s\n", host, err)
			continue
		}
		r.session.Record(report.OperationScan, outcome.Results...)

		var open []int
		for _, result := range outcome.Results {
			if result.Success {
				open = append(open, result.Request.Target.Port)
			}
		}
		gologger.Silent().Msgf("Open ports on %s: %v\n", host, open)

		if outcome.Truncated {
			r.session.MarkTruncated(report.OperationScan)
			gologger.Warning().Msgf("Scan of %s interrupted after %s of %s ports\n",
				host, humanize.Comma(int64(len(outcome.Results))), humanize.Comma(int64(outcome.Total)))
			return
		}
	}
}

func (r *Runner) writeReport(rep report.Report) error {
	if r.options.Output == "" {
		return r.render(r.out, rep, au)
	}

	file, err := os.Create(r.options.Output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := r.render(file, rep, aurora.New(aurora.WithColors(false))); err != nil {
		return err
	}
	gologger.Info().Msgf("Report saved to %s\n", r.options.Output)
	return nil
}

func (r *Runner) render(w io.Writer, rep report.Report, colorizer *aurora.Aurora) error {
	if r.options.JSON {
		return writeJSONReport(w, rep)
	}
	return writeTextReport(w, rep, colorizer)
}
