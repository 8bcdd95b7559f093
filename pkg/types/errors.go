package types

import "fmt"

// InvalidNetworkError is returned for a malformed or unusable address block
type InvalidNetworkError struct {
	Input  string
	Reason string
}

func (e *InvalidNetworkError) Error() string {
	return fmt.Sprintf("invalid network %q: %s", e.Input, e.Reason)
}

// InvalidPortSpecError is returned for a malformed port expression
type InvalidPortSpecError struct {
	Input  string
	Token  string
	Reason string
}

func (e *InvalidPortSpecError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid port spec %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid port spec %q: token %q: %s", e.Input, e.Token, e.Reason)
}

// ResolverFailure is a transport-level resolver error, as opposed to a name
// that simply does not exist.
type ResolverFailure struct {
	Hostname string
	Server   string
	Err      error
}

func (e *ResolverFailure) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("resolver failure for %s via %s: %v", e.Hostname, e.Server, e.Err)
	}
	return fmt.Sprintf("resolver failure for %s: %v", e.Hostname, e.Err)
}

func (e *ResolverFailure) Unwrap() error {
	return e.Err
}
