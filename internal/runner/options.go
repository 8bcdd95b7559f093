package runner

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/netdiag/pkg/netdiag"
	"github.com/projectdiscovery/netdiag/pkg/version"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
)

var au *aurora.Aurora

var (
	ConcurrencyEnv = envutil.GetEnvOrDefault("NETDIAG_CONCURRENCY", "")
	TimeoutEnv     = envutil.GetEnvOrDefault("NETDIAG_TIMEOUT", "")
	ResolverEnv    = envutil.GetEnvOrDefault("NETDIAG_RESOLVER", "")
	VerboseEnv     = envutil.GetEnvOrDefault("NETDIAG_VERBOSE", "")
)

const (
	DefaultPorts       = "1-1024"
	DefaultDNSCacheTTL = 5 * time.Minute
	// SweepAuto sweeps the private /24 networks of the local interfaces
	SweepAuto = "auto"
)

// Options contains the configuration options of a netdiag invocation
type Options struct {
	Ping  goflags.StringSlice
	Count int
	Scan  goflags.StringSlice
	Ports string
	Sweep goflags.StringSlice
	DNS   goflags.StringSlice

	Concurrency  int
	Timeout      time.Duration
	PingTimeout  time.Duration
	SweepTimeout time.Duration
	ICMP         bool
	Privileged   bool
	Resolver     string
	DNSCacheTTL  time.Duration
	Prioritize   bool
	MaxHosts     int

	Output string
	JSON   bool
	JSONL  string

	ConfigFile string
	Verbose    bool
	Silent     bool
	NoColor    bool
	Version    bool
}

// fileConfig mirrors the long flag names accepted in a YAML config file
type fileConfig struct {
	Ping         []string      `yaml:"ping"`
	Count        int           `yaml:"count"`
	Scan         []string      `yaml:"scan"`
	Ports        string        `yaml:"ports"`
	Sweep        []string      `yaml:"sweep"`
	DNS          []string      `yaml:"dns"`
	Concurrency  int           `yaml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout"`
	PingTimeout  time.Duration `yaml:"ping-timeout"`
	SweepTimeout time.Duration `yaml:"sweep-timeout"`
	ICMP         bool          `yaml:"icmp"`
	Privileged   bool          `yaml:"privileged"`
	Resolver     string        `yaml:"resolver"`
	DNSCacheTTL  time.Duration `yaml:"dns-cache-ttl"`
	Prioritize   bool          `yaml:"prioritize"`
	MaxHosts     int           `yaml:"max-hosts"`
	Output       string        `yaml:"output"`
	JSON         bool          `yaml:"json"`
	JSONL        string        `yaml:"jsonl"`
	Verbose      bool          `yaml:"verbose"`
	Silent       bool          `yaml:"silent"`
	NoColor      bool          `yaml:"no-color"`
}

// envDefaults returns the defaults for options that can come from the environment
func envDefaults() (concurrency int, timeout time.Duration, resolverAddr string, verbose bool) {
	concurrency = netdiag.DefaultConcurrency
	if val, err := strconv.Atoi(ConcurrencyEnv); err == nil && val > 0 {
		concurrency = val
	}
	timeout = netdiag.DefaultScanTimeout
	if val, err := time.ParseDuration(TimeoutEnv); err == nil && val > 0 {
		timeout = val
	}
	verbose = VerboseEnv == "true" || VerboseEnv == "1"
	return concurrency, timeout, ResolverEnv, verbose
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`netdiag is a network diagnostic tool for ping, port scan, ping sweep and DNS lookups`)

	defaultConcurrency, defaultTimeout, defaultResolver, defaultVerbose := envDefaults()

	flagSet.CreateGroup("input", "Input",
		flagSet.StringSliceVar(&options.Ping, "ping", nil, "host to ping (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.IntVar(&options.Count, "count", netdiag.DefaultPingCount, "number of echo requests per ping"),
		flagSet.StringSliceVar(&options.Scan, "scan", nil, "host to port scan (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringVarP(&options.Ports, "ports", "p", DefaultPorts, "ports to scan (e.g. 80,443 or 1-1024)"),
		flagSet.StringSliceVar(&options.Sweep, "sweep", nil, "network to ping sweep in CIDR notation, or auto for local networks", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringSliceVar(&options.DNS, "dns", nil, "hostname to resolve (comma separated)", goflags.CommaSeparatedStringSliceOptions),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", defaultConcurrency, "maximum number of probes in flight"),
		flagSet.DurationVarP(&options.Timeout, "timeout", "t", defaultTimeout, "timeout per port scan probe"),
		flagSet.DurationVar(&options.PingTimeout, "ping-timeout", netdiag.DefaultPingTimeout, "timeout for a single host ping"),
		flagSet.DurationVar(&options.SweepTimeout, "sweep-timeout", netdiag.DefaultSweepTimeout, "timeout per host of a ping sweep"),
		flagSet.BoolVar(&options.ICMP, "icmp", false, "send echo requests on an icmp socket instead of running ping"),
		flagSet.BoolVar(&options.Privileged, "privileged", false, "use raw icmp sockets (requires root)"),
		flagSet.StringVarP(&options.Resolver, "resolver", "r", defaultResolver, "dns server to query (host[:port]), system resolver when empty"),
		flagSet.DurationVar(&options.DNSCacheTTL, "dns-cache-ttl", DefaultDNSCacheTTL, "cache successful lookups for this long (0 to disable)"),
		flagSet.BoolVar(&options.Prioritize, "prioritize", false, "probe likely live hosts of a sweep first"),
		flagSet.IntVar(&options.MaxHosts, "max-hosts", netdiag.DefaultMaxSweepHosts, "maximum number of hosts in a swept network"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.Output, "output", "o", "", "file to write the report to"),
		flagSet.BoolVar(&options.JSON, "json", false, "write the report as json"),
		flagSet.StringVar(&options.JSONL, "jsonl", "", "file to stream every result to as json lines"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&options.ConfigFile, "config", "", "yaml configuration file"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", defaultVerbose, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	// configure aurora for logging
	au = aurora.New(aurora.WithColors(true))

	if options.ConfigFile != "" {
		if err := options.loadConfigFrom(options.ConfigFile, explicitFlags(flagSet.CommandLine)); err != nil {
			gologger.Fatal().Msgf("Could not read config file: %s\n", err)
		}
	}

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.New(aurora.WithColors(false))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

// validate checks the combination of options
func (options *Options) validate() error {
	if len(options.Ping) == 0 && len(options.Scan) == 0 && len(options.Sweep) == 0 && len(options.DNS) == 0 {
		return errors.New("no operation given, use -ping, -scan, -sweep or -dns")
	}
	if options.Count < 1 {
		return fmt.Errorf("invalid ping count %d", options.Count)
	}
	if options.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency %d", options.Concurrency)
	}
	if options.Timeout <= 0 || options.PingTimeout <= 0 || options.SweepTimeout <= 0 {
		return errors.New("timeouts must be greater than zero")
	}
	if options.DNSCacheTTL < 0 {
		return errors.New("dns cache ttl cannot be negative")
	}
	if options.Privileged && !options.ICMP {
		return errors.New("-privileged requires -icmp")
	}
	if options.Verbose && options.Silent {
		return errors.New("both verbose and silent mode specified")
	}
	return nil
}

// explicitFlags returns the names of the flags set on the command line
func explicitFlags(fs *flag.FlagSet) map[string]struct{} {
	set := make(map[string]struct{})
	if fs == nil {
		return set
	}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = struct{}{}
	})
	return set
}

// loadConfigFrom reads a YAML config file. Values from the file replace
// environment and built-in defaults but never flags given on the command line.
func (options *Options) loadConfigFrom(location string, explicit map[string]struct{}) error {
	if !fileutil.FileExists(location) {
		return fmt.Errorf("config file %s does not exist", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", location, err)
	}
	var cfg fileConfig
	if err := fileutil.Unmarshal(fileutil.YAML, data, &cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", location, err)
	}
	options.applyConfig(&cfg, explicit)
	return nil
}

func (options *Options) applyConfig(cfg *fileConfig, explicit map[string]struct{}) {
	unset := func(names ...string) bool {
		for _, name := range names {
			if _, ok := explicit[name]; ok {
				return false
			}
		}
		return true
	}

	if len(cfg.Ping) > 0 && unset("ping") {
		options.Ping = cfg.Ping
	}
	if cfg.Count > 0 && unset("count") {
		options.Count = cfg.Count
	}
	if len(cfg.Scan) > 0 && unset("scan") {
		options.Scan = cfg.Scan
	}
	if cfg.Ports != "" && unset("ports", "p") {
		options.Ports = cfg.Ports
	}
	if len(cfg.Sweep) > 0 && unset("sweep") {
		options.Sweep = cfg.Sweep
	}
	if len(cfg.DNS) > 0 && unset("dns") {
		options.DNS = cfg.DNS
	}
	if cfg.Concurrency > 0 && unset("concurrency", "c") {
		options.Concurrency = cfg.Concurrency
	}
	if cfg.Timeout > 0 && unset("timeout", "t") {
		options.Timeout = cfg.Timeout
	}
	if cfg.PingTimeout > 0 && unset("ping-timeout") {
		options.PingTimeout = cfg.PingTimeout
	}
	if cfg.SweepTimeout > 0 && unset("sweep-timeout") {
		options.SweepTimeout = cfg.SweepTimeout
	}
	if cfg.ICMP && unset("icmp") {
		options.ICMP = true
	}
	if cfg.Privileged && unset("privileged") {
		options.Privileged = true
	}
	if cfg.Resolver != "" && unset("resolver", "r") {
		options.Resolver = cfg.Resolver
	}
	if cfg.DNSCacheTTL > 0 && unset("dns-cache-ttl") {
		options.DNSCacheTTL = cfg.DNSCacheTTL
	}
	if cfg.Prioritize && unset("prioritize") {
		options.Prioritize = true
	}
	if cfg.MaxHosts != 0 && unset("max-hosts") {
		options.MaxHosts = cfg.MaxHosts
	}
	if cfg.Output != "" && unset("output", "o") {
		options.Output = cfg.Output
	}
	if cfg.JSON && unset("json") {
		options.JSON = true
	}
	if cfg.JSONL != "" && unset("jsonl") {
		options.JSONL = cfg.JSONL
	}
	if cfg.Verbose && unset("verbose", "v") {
		options.Verbose = true
	}
	if cfg.Silent && unset("silent") {
		options.Silent = true
	}
	if cfg.NoColor && unset("no-color", "nc") {
		options.NoColor = true
	}
}
