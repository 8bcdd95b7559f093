package sweep

import (
	"fmt"
	"slices"
	"time"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

// Plan describes one fan-out: which targets to probe, how many at once, and
// the per-probe timeout. A plan is not modified once built.
type Plan struct {
	Targets     []types.Target
	Concurrency int
	Timeout     time.Duration
	// Order is an optional dispatch permutation of target indices.
	// Results always follow Targets order.
	Order []int
}

// NewPlan validates and builds a plan
func NewPlan(targets []types.Target, concurrency int, timeout time.Duration) (Plan, error) {
	if concurrency <= 0 {
		return Plan{}, &types.ValidationError{Field: "concurrency", Message: fmt.Sprintf("concurrency must be greater than zero, got %d", concurrency)}
	}
	if timeout <= 0 {
		return Plan{}, &types.ValidationError{Field: "timeout", Message: fmt.Sprintf("timeout must be greater than zero, got %s", timeout)}
	}
	return Plan{
		Targets:     slices.Clone(targets),
		Concurrency: concurrency,
		Timeout:     timeout,
	}, nil
}

// WithOrder returns a copy of the plan dispatching targets in order.
// order must be a permutation of the target indices.
func (p Plan) WithOrder(order []int) (Plan, error) {
	if len(order) != len(p.Targets) {
		return p, &types.ValidationError{Field: "order", Message: fmt.Sprintf("order has %d entries for %d targets", len(order), len(p.Targets))}
	}
	seen := make([]bool, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(order) || seen[idx] {
			return p, &types.ValidationError{Field: "order", Message: "order is not a permutation of target indices"}
		}
		seen[idx] = true
	}
	p.Order = slices.Clone(order)
	return p, nil
}

// dispatchOrder returns the indices in the order probes are started
func (p Plan) dispatchOrder() []int {
	if p.Order != nil {
		return p.Order
	}
	order := make([]int, len(p.Targets))
	for i := range order {
		order[i] = i
	}
	return order
}
