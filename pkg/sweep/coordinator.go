package sweep

import (
	"context"
	"errors"
	"sync"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netdiag/pkg/probe"
	"github.com/projectdiscovery/netdiag/pkg/types"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// RequestBuilder turns a target into the request sent to the prober
type RequestBuilder func(target types.Target) types.ProbeRequest

// Outcome holds the results of a run in target order
type Outcome struct {
	Results []types.ProbeResult `json:"results"`
	// Truncated is set when the run was cancelled before every target produced a result
	Truncated bool `json:"truncated"`
	Total     int  `json:"total"`
}

// Pending returns the number of targets without a result
func (o Outcome) Pending() int {
	return o.Total - len(o.Results)
}

// Coordinator fans a plan out over a prober with bounded concurrency
type Coordinator struct {
	Prober probe.Prober
}

// New creates a coordinator for prober
func New(prober probe.Prober) *Coordinator {
	return &Coordinator{Prober: prober}
}

// Run probes every target of plan exactly once, never running more than
// plan.Concurrency probes at a time. Each probe gets its own deadline of
// req.Timeout and a success reported after it counts as a timeout. When ctx
// ends, dispatch stops, probes still in flight are abandoned and the results
// completed so far are returned.
func (c *Coordinator) Run(ctx context.Context, plan Plan, kind types.ProbeKind, build RequestBuilder) Outcome {
	total := len(plan.Targets)
	if total == 0 {
		return Outcome{Results: []types.ProbeResult{}}
	}

	concurrency := plan.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	awg, err := syncutil.New(syncutil.WithSize(concurrency))
	if err != nil {
		gologger.Error().Msgf("Error creating syncutil: %v", err)
		return Outcome{Results: []types.ProbeResult{}, Truncated: true, Total: total}
	}

	gologger.Debug().Msgf("Dispatching %d %s probes (concurrency %d, timeout %s)", total, kind, concurrency, plan.Timeout)

	buf := newSlotBuffer(total)
	for _, idx := range plan.dispatchOrder() {
		if ctx.Err() != nil {
			break
		}
		if err := awg.AddWithContext(ctx); err != nil {
			break
		}

		go func(idx int) {
			defer awg.Done()

			req := buildRequest(plan, kind, build, plan.Targets[idx])
			probeCtx, cancel := context.WithTimeout(ctx, req.Timeout)
			result := c.Prober.Probe(probeCtx, req)
			overran := errors.Is(probeCtx.Err(), context.DeadlineExceeded)
			cancel()
			if ctx.Err() != nil {
				return
			}
			if overran && result.Success {
				result = types.Failed(req, result.Latency, types.ClassTimeout, "no result within "+req.Timeout.String())
			}
			buf.store(idx, result)
		}(idx)
	}

	waitDone := make(chan struct{})
	go func() {
		awg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
	}

	results := buf.seal()
	outcome := Outcome{Results: results, Total: total, Truncated: len(results) < total}
	if outcome.Truncated {
		gologger.Debug().Msgf("Run cancelled with %d of %d %s probes pending", outcome.Pending(), total, kind)
	}
	return outcome
}

func buildRequest(plan Plan, kind types.ProbeKind, build RequestBuilder, target types.Target) types.ProbeRequest {
	if build == nil {
		return types.ProbeRequest{Target: target, Kind: kind, Timeout: plan.Timeout, Count: 1}
	}
	req := build(target)
	if req.Timeout <= 0 {
		req.Timeout = plan.Timeout
	}
	return req
}

// slotBuffer collects results by target index. Each slot is written at most
// once and nothing is written after the buffer is sealed.
type slotBuffer struct {
	mu     sync.Mutex
	slots  []types.ProbeResult
	filled []bool
	sealed bool
}

func newSlotBuffer(size int) *slotBuffer {
	return &slotBuffer{
		slots:  make([]types.ProbeResult, size),
		filled: make([]bool, size),
	}
}

func (b *slotBuffer) store(idx int, result types.ProbeResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed || b.filled[idx] {
		return false
	}
	b.slots[idx] = result
	b.filled[idx] = true
	return true
}

// seal stops further writes and returns the filled slots in index order
func (b *slotBuffer) seal() []types.ProbeResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sealed = true
	results := make([]types.ProbeResult, 0, len(b.slots))
	for i, ok := range b.filled {
		if ok {
			results = append(results, b.slots[i])
		}
	}
	return results
}
