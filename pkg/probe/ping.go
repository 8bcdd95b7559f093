package probe

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
	osutils "github.com/projectdiscovery/utils/os"
)

// waitDelay bounds how long a killed ping may hold its output pipes open
const waitDelay = 500 * time.Millisecond

// CommandFunc builds the command that runs the ping binary
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// SystemPinger probes reachability by running the platform ping utility once per request
type SystemPinger struct {
	// Binary is the ping executable, "ping" when empty
	Binary string
	// Command builds the subprocess, exec.CommandContext when nil
	Command CommandFunc
}

// NewSystemPinger creates a pinger using the ping binary found in PATH
func NewSystemPinger() *SystemPinger {
	return &SystemPinger{Binary: "ping", Command: exec.CommandContext}
}

// Probe runs ping against req.Target.Host with req.Count echoes. The host is
// up when ping exits cleanly or reports at least one reply; output is kept either way.
func (p *SystemPinger) Probe(ctx context.Context, req types.ProbeRequest) types.ProbeResult {
	if err := req.Validate(); err != nil {
		return invalid(req, err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	binary := p.Binary
	if binary == "" {
		binary = "ping"
	}
	command := p.Command
	if command == nil {
		command = exec.CommandContext
	}

	args := append(PingArgs(req.Count, req.Timeout), req.Target.Host)
	cmd := command(ctx, binary, args...)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	output := string(out)

	// one reply is enough on every platform, whatever the exit status says about loss
	replies := parseReplies(output)
	var result types.ProbeResult
	if err == nil || replies > 0 {
		result = types.Succeeded(req, elapsed)
	} else {
		result = types.Failed(req, elapsed, classifyPingError(ctx, err, output), pingDetail(err, output))
	}
	result.Output = output
	result.Replies = replies
	return result
}

// PingArgs returns the platform specific arguments for count echoes. The
// overall bound is the probe context; the flags only cap the wait per reply,
// since a Linux -w deadline turns partial loss into exit status 1.
func PingArgs(count int, timeout time.Duration) []string {
	switch {
	case osutils.IsWindows():
		// -w is the per-reply wait in milliseconds
		return []string{"-n", strconv.Itoa(count), "-w", strconv.FormatInt(timeout.Milliseconds(), 10)}
	case osutils.IsOSX():
		return []string{"-c", strconv.Itoa(count), "-t", strconv.Itoa(wholeSeconds(timeout))}
	default:
		return []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(wholeSeconds(timeout))}
	}
}

func wholeSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func classifyPingError(ctx context.Context, err error, output string) types.ErrorClass {
	if strings.Contains(strings.ToLower(output), "unreachable") {
		return types.ClassUnreachable
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.ClassTimeout
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return types.ClassTimeout
	}
	return types.ClassOther
}

func pingDetail(err error, output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return err.Error() + ": " + last
	}
	return err.Error()
}

var (
	unixReceived    = regexp.MustCompile(`(\d+) (?:packets )?received`)
	windowsReceived = regexp.MustCompile(`Received = (\d+)`)
)

// parseReplies extracts the received echo count from ping statistics
func parseReplies(output string) int {
	for _, re := range []*regexp.Regexp{unixReceived, windowsReceived} {
		if match := re.FindStringSubmatch(output); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
