package protocol

import (
	"fmt"

	"hagglebench/internal/domain"
	"hagglebench/internal/strategy"
)

// Result is the terminal state of one negotiation. Allocations are nil
// unless the outcome is a deal; profits are zero in that case.
type Result struct {
	Outcome         domain.Outcome
	AllocationSeat0 domain.Allocation
	AllocationSeat1 domain.Allocation
	ProfitSeat0     int
	ProfitSeat1     int
	Turns           []domain.Turn
	Err             error
}

// Run executes one scenario between two seated agents under the
// alternating-offers protocol. Seat 0 values items by sc.ValuesA, seat 1 by
// sc.ValuesB; the handles must have been constructed accordingly.
//
// Each round: seat 0 proposes (or accepts the offer it received), the
// complement is shown to seat 1, which accepts or counter-proposes. A
// strategy error, a malformed allocation, or an acceptance with nothing on
// the table ends the negotiation immediately, attributed to the offending
// seat. Exhausting the round budget without an acceptance is a no-deal.
func Run(seat0, seat1 strategy.Agent, sc domain.Scenario) Result {
	turns := make([]domain.Turn, 0, sc.RoundBudget)

	// Last offer made to seat 0, in seat 0's perspective. Nil until seat 1
	// counter-proposes for the first time.
	var received0 domain.Allocation

	for round := 1; round <= sc.RoundBudget; round++ {
		turn := domain.Turn{Round: round}

		proposal0, err := seat0.Offer(received0.Clone())
		if err != nil {
			return errorResult(domain.OutcomeErrorSeat0, turns, fmt.Errorf("seat 0 offer: %w", err))
		}
		if proposal0 == nil {
			if received0 == nil {
				return errorResult(domain.OutcomeErrorSeat0, turns,
					fmt.Errorf("seat 0 accepted in round %d with no offer on the table", round))
			}
			// Seat 0 takes exactly what it was offered.
			turns = append(turns, turn)
			return dealResult(sc, received0, turns)
		}
		if err := proposal0.Validate(sc.Counts); err != nil {
			return errorResult(domain.OutcomeErrorSeat0, turns, fmt.Errorf("seat 0 allocation: %w", err))
		}
		turn.OfferSeat0 = proposal0.Clone()

		offered1 := proposal0.Complement(sc.Counts)
		proposal1, err := seat1.Offer(offered1.Clone())
		if err != nil {
			turns = append(turns, turn)
			return errorResult(domain.OutcomeErrorSeat1, turns, fmt.Errorf("seat 1 offer: %w", err))
		}
		if proposal1 == nil {
			// Seat 1 accepts seat 0's proposal as offered.
			turns = append(turns, turn)
			return dealResult(sc, proposal0, turns)
		}
		if err := proposal1.Validate(sc.Counts); err != nil {
			turns = append(turns, turn)
			return errorResult(domain.OutcomeErrorSeat1, turns, fmt.Errorf("seat 1 allocation: %w", err))
		}
		turn.OfferSeat1 = proposal1.Clone()
		turns = append(turns, turn)

		received0 = proposal1.Complement(sc.Counts)
	}

	return Result{Outcome: domain.OutcomeNoDeal, Turns: turns}
}

// dealResult finalizes an accepted negotiation given seat 0's allocation.
func dealResult(sc domain.Scenario, seat0Alloc domain.Allocation, turns []domain.Turn) Result {
	alloc0 := seat0Alloc.Clone()
	alloc1 := alloc0.Complement(sc.Counts)
	return Result{
		Outcome:         domain.OutcomeDeal,
		AllocationSeat0: alloc0,
		AllocationSeat1: alloc1,
		ProfitSeat0:     alloc0.Valuation(sc.ValuesA),
		ProfitSeat1:     alloc1.Valuation(sc.ValuesB),
		Turns:           turns,
	}
}

func errorResult(outcome domain.Outcome, turns []domain.Turn, err error) Result {
	return Result{Outcome: outcome, Turns: turns, Err: err}
}

// Transcript packages a result as the persistence-layer record.
func (r Result) Transcript(sc domain.Scenario, seat0Agent, seat1Agent string) domain.Negotiation {
	return domain.Negotiation{
		Scenario:        sc,
		Seat0Agent:      seat0Agent,
		Seat1Agent:      seat1Agent,
		Outcome:         r.Outcome,
		AllocationSeat0: r.AllocationSeat0,
		AllocationSeat1: r.AllocationSeat1,
		ProfitSeat0:     r.ProfitSeat0,
		ProfitSeat1:     r.ProfitSeat1,
		Turns:           r.Turns,
	}
}
