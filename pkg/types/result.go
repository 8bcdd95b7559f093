package types

import (
	"errors"
	"net/netip"
	"time"
)

// ErrorClass classifies why a probe did not succeed
type ErrorClass int

const (
	ClassTimeout ErrorClass = iota
	ClassRefused
	ClassUnreachable
	ClassOther
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTimeout:
		return "timeout"
	case ClassRefused:
		return "refused"
	case ClassUnreachable:
		return "unreachable"
	default:
		return "other"
	}
}

// MarshalText renders the class by name
func (c ErrorClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Sentinels matched by errors.Is against a *ProbeError of the same class.
var (
	ErrProbeTimeout     = errors.New("probe timeout")
	ErrProbeRefused     = errors.New("probe refused")
	ErrProbeUnreachable = errors.New("probe unreachable")
	ErrProbeOther       = errors.New("probe failed")
)

// ProbeError is the classified failure detail of a probe
type ProbeError struct {
	Class  ErrorClass `json:"class"`
	Detail string     `json:"detail"`
}

// NewProbeError creates a classified probe error
func NewProbeError(class ErrorClass, detail string) *ProbeError {
	return &ProbeError{Class: class, Detail: detail}
}

func (e *ProbeError) Error() string {
	if e.Detail == "" {
		return e.Class.String()
	}
	return e.Class.String() + ": " + e.Detail
}

// Is reports whether target is the sentinel of this error's class
func (e *ProbeError) Is(target error) bool {
	switch e.Class {
	case ClassTimeout:
		return target == ErrProbeTimeout
	case ClassRefused:
		return target == ErrProbeRefused
	case ClassUnreachable:
		return target == ErrProbeUnreachable
	default:
		return target == ErrProbeOther
	}
}

// ProbeResult is the outcome of exactly one ProbeRequest
type ProbeResult struct {
	Request ProbeRequest  `json:"request"`
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency"`
	Err     *ProbeError   `json:"error,omitempty"`
	// Output keeps the raw text of the ping facility, if any
	Output string `json:"output,omitempty"`
	// Replies is the number of echo replies observed by ping probes
	Replies   int       `json:"replies,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Succeeded builds a successful result
func Succeeded(req ProbeRequest, latency time.Duration) ProbeResult {
	return ProbeResult{
		Request:   req,
		Success:   true,
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

// Failed builds a failed result with a classified error
func Failed(req ProbeRequest, latency time.Duration, class ErrorClass, detail string) ProbeResult {
	return ProbeResult{
		Request:   req,
		Success:   false,
		Latency:   latency,
		Err:       NewProbeError(class, detail),
		Timestamp: time.Now(),
	}
}

// Lookup is the outcome of a single forward name resolution
type Lookup struct {
	Hostname  string       `json:"hostname"`
	Addresses []netip.Addr `json:"addresses,omitempty"`
	Found     bool         `json:"found"`
	Timestamp time.Time    `json:"timestamp"`
}

// First returns the first resolved address, preferring IPv4
func (l Lookup) First() (netip.Addr, bool) {
	if !l.Found || len(l.Addresses) == 0 {
		return netip.Addr{}, false
	}
	for _, addr := range l.Addresses {
		if addr.Is4() || addr.Is4In6() {
			return addr.Unmap(), true
		}
	}
	return l.Addresses[0], true
}
