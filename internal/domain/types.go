package domain

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of one negotiation.
type Outcome string

const (
	OutcomeDeal       Outcome = "deal"
	OutcomeNoDeal     Outcome = "no_deal"
	OutcomeErrorSeat0 Outcome = "error_seat0"
	OutcomeErrorSeat1 Outcome = "error_seat1"
)

// IsError reports whether the outcome was caused by a seat failure rather
// than a regular resolution of the protocol.
func (o Outcome) IsError() bool {
	return o == OutcomeErrorSeat0 || o == OutcomeErrorSeat1
}

// Allocation is the bundle one seat would receive, one quantity per item
// type, each between 0 and the scenario's count for that type.
type Allocation []int

// Clone returns an independent copy so callers can hand allocations to
// untrusted strategy code without aliasing engine state.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	copy(out, a)
	return out
}

// Complement returns the bundle left for the other seat.
func (a Allocation) Complement(counts []int) Allocation {
	out := make(Allocation, len(counts))
	for i, c := range counts {
		out[i] = c - a[i]
	}
	return out
}

// Valuation is the dot product of the allocation with a seat's private values.
func (a Allocation) Valuation(values []int) int {
	total := 0
	for i, q := range a {
		total += q * values[i]
	}
	return total
}

// Validate checks shape and per-item bounds against the scenario counts.
func (a Allocation) Validate(counts []int) error {
	if len(a) != len(counts) {
		return fmt.Errorf("allocation has %d entries, scenario has %d item types", len(a), len(counts))
	}
	for i, q := range a {
		if q < 0 || q > counts[i] {
			return fmt.Errorf("allocation[%d]=%d outside 0..%d", i, q, counts[i])
		}
	}
	return nil
}

// Scenario is one randomly generated bargaining instance. Both seats share
// the item counts and the round budget; the valuation vectors are private
// per seat. Scenarios are immutable once generated.
type Scenario struct {
	ID          int   `json:"id"`
	Counts      []int `json:"counts"`
	ValuesA     []int `json:"values_a"`
	ValuesB     []int `json:"values_b"`
	RoundBudget int   `json:"round_budget"`
	TargetWorth int   `json:"target_worth"`
}

// Turn is one round of the alternating-offers protocol. Offers are recorded
// in the proposing seat's own perspective. A nil field on the final turn is
// the acceptance marker when the negotiation ended in a deal; when the
// negotiation ended in a seat error it marks the aborted part of the round.
// The outcome tag on the surrounding record disambiguates the two.
type Turn struct {
	Round      int        `json:"round"`
	OfferSeat0 Allocation `json:"offer_seat0,omitempty"`
	OfferSeat1 Allocation `json:"offer_seat1,omitempty"`
}

// Negotiation is the full transcript of one scenario played between two
// seated agents. This is the per-negotiation payload handed to the
// persistence layer.
type Negotiation struct {
	Scenario        Scenario   `json:"scenario"`
	Seat0Agent      string     `json:"seat0_agent"`
	Seat1Agent      string     `json:"seat1_agent"`
	Outcome         Outcome    `json:"outcome"`
	AllocationSeat0 Allocation `json:"allocation_seat0,omitempty"`
	AllocationSeat1 Allocation `json:"allocation_seat1,omitempty"`
	ProfitSeat0     int        `json:"profit_seat0"`
	ProfitSeat1     int        `json:"profit_seat1"`
	Turns           []Turn     `json:"turns"`
}

// PairKey identifies an unordered pair of agents. A is always the agent
// listed earlier in the tournament roster, so (x,y) and (y,x) collapse to
// one key.
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (k PairKey) String() string {
	return k.A + "-vs-" + k.B
}

// MatchResult is what one pair of agents contributes to the tournament:
// accumulated profit for both agents across every scenario and seating, and
// a bounded sample of transcripts.
type MatchResult struct {
	Pair        PairKey        `json:"pair"`
	Profit      map[string]int `json:"profit"`
	Transcripts []Negotiation  `json:"transcripts"`
}

// TournamentResult aggregates every pair's MatchResult. Profit sums across
// pairs; transcripts stay keyed by their unordered pair.
type TournamentResult struct {
	ID               string                    `json:"id"`
	StartedAt        time.Time                 `json:"started_at"`
	FinishedAt       time.Time                 `json:"finished_at"`
	Profit           map[string]int            `json:"profit"`
	Transcripts      map[PairKey][]Negotiation `json:"-"`
	AgentIDs         []string                  `json:"agent_ids"`
	ScenarioCount    int                       `json:"scenario_count"`
	TotalTargetWorth int                       `json:"total_target_worth"`
	Workers          int                       `json:"workers"`
}

// MaxAchievableProfit is the profit an agent would earn if it captured the
// full worth of every scenario, in both seatings, against every opponent.
func (r TournamentResult) MaxAchievableProfit() int {
	opponents := len(r.AgentIDs) - 1
	if opponents < 0 {
		opponents = 0
	}
	return 2 * r.TotalTargetWorth * opponents
}
