package report

import (
	"sync"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
	"github.com/rs/xid"
)

// Operation names the user-facing operation a result belongs to
type Operation string

const (
	OperationPing  Operation = "ping"
	OperationScan  Operation = "scan"
	OperationSweep Operation = "sweep"
	OperationDNS   Operation = "dns"
)

// Entry is one observation in the session log. Exactly one of Result and
// Lookup is set.
type Entry struct {
	SessionID string             `json:"session_id"`
	Operation Operation          `json:"operation"`
	Result    *types.ProbeResult `json:"result,omitempty"`
	Lookup    *types.Lookup      `json:"lookup,omitempty"`
	Recorded  time.Time          `json:"recorded"`
}

// Session accumulates every observation of one invocation
type Session struct {
	id        string
	started   time.Time
	sink      func(Entry)
	mu        sync.Mutex
	entries   []Entry
	truncated []Operation
}

// Option configures a Session
type Option func(*Session)

// WithSink streams every recorded entry to fn, in record order for each
// caller. fn runs without the session lock held.
func WithSink(fn func(Entry)) Option {
	return func(s *Session) {
		s.sink = fn
	}
}

// NewSession creates an empty session
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:      xid.New().String(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Record appends results of op to the log. Duplicates are kept as separate observations.
func (s *Session) Record(op Operation, results ...types.ProbeResult) {
	entries := make([]Entry, 0, len(results))
	s.mu.Lock()
	for i := range results {
		result := results[i]
		entry := Entry{SessionID: s.id, Operation: op, Result: &result, Recorded: time.Now()}
		s.entries = append(s.entries, entry)
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	s.emit(entries...)
}

// RecordLookup appends a name resolution to the log
func (s *Session) RecordLookup(lookup types.Lookup) {
	entry := Entry{SessionID: s.id, Operation: OperationDNS, Lookup: &lookup, Recorded: time.Now()}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.emit(entry)
}

// MarkTruncated flags op as cut short by cancellation
func (s *Session) MarkTruncated(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.truncated {
		if existing == op {
			return
		}
	}
	s.truncated = append(s.truncated, op)
}

// emit hands entries to the sink outside the log lock
func (s *Session) emit(entries ...Entry) {
	if s.sink == nil {
		return
	}
	for _, entry := range entries {
		s.sink(entry)
	}
}
