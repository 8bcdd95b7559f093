package types

import (
	"net"
	"strconv"
	"time"
)

// ProbeKind represents the type of probe to execute
type ProbeKind int

const (
	Ping ProbeKind = iota
	TCPConnect
)

func (k ProbeKind) String() string {
	switch k {
	case Ping:
		return "ping"
	case TCPConnect:
		return "tcp"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name so reports stay readable
func (k ProbeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Target is a single address with an optional port (0 means none).
type Target struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
}

// NewTarget creates a target for host and port
func NewTarget(host string, port int) Target {
	return Target{Host: host, Port: port}
}

// Address returns the dialable address of the target
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	if t.Port == 0 {
		return t.Host
	}
	return t.Address()
}

// ProbeRequest describes one atomic probe
type ProbeRequest struct {
	Target  Target        `json:"target"`
	Kind    ProbeKind     `json:"kind"`
	Timeout time.Duration `json:"timeout"`
	// Count is the number of echo attempts for ping probes
	Count int `json:"count,omitempty"`
}

// Validate checks that the request can be executed
func (r *ProbeRequest) Validate() error {
	if r.Target.Host == "" {
		return &ValidationError{Field: "target", Message: "target host is required"}
	}
	if r.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Message: "timeout must be greater than zero"}
	}
	switch r.Kind {
	case TCPConnect:
		if r.Target.Port < 1 || r.Target.Port > 65535 {
			return &ValidationError{Field: "port", Message: "port must be in 1..65535 for tcp probes"}
		}
	case Ping:
		if r.Count < 1 {
			return &ValidationError{Field: "count", Message: "count must be at least 1 for ping probes"}
		}
	default:
		return &ValidationError{Field: "kind", Message: "unknown probe kind " + strconv.Itoa(int(r.Kind))}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
