package strategy

import (
	"errors"
	"sort"

	"hagglebench/internal/domain"
)

// Built-in strategies. They serve as the default tournament pool and as
// deterministic fixtures for the engine tests: none of them draws random
// numbers, so replaying a scenario reproduces the same transcript.

func init() {
	Register("hardliner", newHardliner)
	Register("splitter", newSplitter)
	Register("conceder", newConceder)
	Register("pushover", newPushover)
}

// hardliner demands the entire pool every round and never accepts.
type hardliner struct {
	counts []int
}

func newHardliner(_ int, counts []int, _ []int, _ int) (Agent, error) {
	return &hardliner{counts: counts}, nil
}

func (h *hardliner) Offer(_ domain.Allocation) (domain.Allocation, error) {
	return domain.Allocation(h.counts).Clone(), nil
}

// splitter aims for half of its private worth: it accepts any offer reaching
// that target and otherwise proposes its cheapest bundle meeting it,
// preferring item types it values most.
type splitter struct {
	counts []int
	values []int
	target int
}

func newSplitter(_ int, counts []int, ownValues []int, _ int) (Agent, error) {
	total := domain.Allocation(counts).Valuation(ownValues)
	return &splitter{counts: counts, values: ownValues, target: (total + 1) / 2}, nil
}

func (s *splitter) Offer(received domain.Allocation) (domain.Allocation, error) {
	if received != nil && received.Valuation(s.values) >= s.target {
		return nil, nil
	}
	return demandBundle(s.counts, s.values, s.target), nil
}

// conceder starts from the full pool and lowers its demand linearly as the
// round budget runs out, accepting anything that meets the current demand.
type conceder struct {
	counts []int
	values []int
	total  int
	budget int
	round  int
}

func newConceder(_ int, counts []int, ownValues []int, roundBudget int) (Agent, error) {
	return &conceder{
		counts: counts,
		values: ownValues,
		total:  domain.Allocation(counts).Valuation(ownValues),
		budget: roundBudget,
	}, nil
}

func (c *conceder) Offer(received domain.Allocation) (domain.Allocation, error) {
	c.round++
	demand := c.total
	if c.budget > 1 {
		// Linear concession from the full worth down to half.
		demand = c.total - (c.total/2)*(c.round-1)/(c.budget-1)
	}
	if received != nil && received.Valuation(c.values) >= demand {
		return nil, nil
	}
	return demandBundle(c.counts, c.values, demand), nil
}

// pushover opens by demanding everything, then accepts whatever it is
// offered next.
type pushover struct {
	counts []int
}

func newPushover(_ int, counts []int, _ []int, _ int) (Agent, error) {
	return &pushover{counts: counts}, nil
}

func (p *pushover) Offer(received domain.Allocation) (domain.Allocation, error) {
	if received == nil {
		return domain.Allocation(p.counts).Clone(), nil
	}
	return nil, nil
}

// demandBundle greedily claims items in descending own-value order until the
// bundle's valuation reaches target.
func demandBundle(counts []int, values []int, target int) domain.Allocation {
	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return values[order[i]] > values[order[j]]
	})

	bundle := make(domain.Allocation, len(counts))
	worth := 0
	for _, idx := range order {
		for q := 0; q < counts[idx] && worth < target; q++ {
			bundle[idx]++
			worth += values[idx]
		}
	}
	return bundle
}

// ErrBrokenStrategy is returned by the broken fixture on every call.
var ErrBrokenStrategy = errors.New("strategy raised inside offer")

// Broken returns a Definition whose handles fail on every Offer call.
// Used to exercise the protocol error paths.
func Broken(id string) Definition {
	return Definition{
		ID: id,
		New: func(_ int, _ []int, _ []int, _ int) (Agent, error) {
			return brokenAgent{}, nil
		},
	}
}

type brokenAgent struct{}

func (brokenAgent) Offer(_ domain.Allocation) (domain.Allocation, error) {
	return nil, ErrBrokenStrategy
}

// Unloadable returns a Definition whose factory always fails, standing in
// for an external strategy that cannot be resolved into a handle.
func Unloadable(id string) Definition {
	return Definition{
		ID: id,
		New: func(_ int, _ []int, _ []int, _ int) (Agent, error) {
			return nil, errors.New("strategy cannot be loaded")
		},
	}
}
