package match

import (
	"fmt"
	"log"

	"hagglebench/internal/domain"
	"hagglebench/internal/protocol"
	"hagglebench/internal/strategy"
)

// DefaultSampleQuota bounds how many transcripts one pair retains.
const DefaultSampleQuota = 5

// Runner plays one unordered pair of agents against each other: both
// seating orders, every scenario, fresh handles per negotiation.
type Runner struct {
	sampleQuota int
	logger      *log.Logger
}

func NewRunner(sampleQuota int, logger *log.Logger) *Runner {
	if sampleQuota <= 0 {
		sampleQuota = DefaultSampleQuota
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{sampleQuota: sampleQuota, logger: logger}
}

// Run accumulates both agents' profit across all scenarios and seatings and
// samples a bounded number of transcripts, split as evenly as possible
// between the two seatings and taken in scenario-generation order.
//
// Failures never escape: if either strategy cannot be resolved into a
// handle the pair contributes a zero-valued result, and a protocol error in
// one negotiation costs only that negotiation's profit.
func (r *Runner) Run(defA, defB strategy.Definition, scenarios []domain.Scenario) domain.MatchResult {
	pair := domain.PairKey{A: defA.ID, B: defB.ID}

	// Forward seating gets the larger half of the quota; each seating's
	// share is capped independently so neither can exhaust the other's.
	forwardQuota := (r.sampleQuota + 1) / 2
	reverseQuota := r.sampleQuota - forwardQuota

	forward, err := r.runSeating(defA, defB, scenarios, forwardQuota)
	if err != nil {
		r.logger.Printf("pair %s unusable: %v", pair, err)
		return zeroResult(pair)
	}
	reverse, err := r.runSeating(defB, defA, scenarios, reverseQuota)
	if err != nil {
		r.logger.Printf("pair %s unusable: %v", pair, err)
		return zeroResult(pair)
	}

	transcripts := make([]domain.Negotiation, 0, len(forward.samples)+len(reverse.samples))
	transcripts = append(transcripts, forward.samples...)
	transcripts = append(transcripts, reverse.samples...)

	return domain.MatchResult{
		Pair: pair,
		Profit: map[string]int{
			defA.ID: forward.profitSeat0 + reverse.profitSeat1,
			defB.ID: forward.profitSeat1 + reverse.profitSeat0,
		},
		Transcripts: transcripts,
	}
}

type seatingOutcome struct {
	profitSeat0 int
	profitSeat1 int
	samples     []domain.Negotiation
}

// runSeating plays every scenario with seat0Def in seat 0. The returned
// error means a handle could not be constructed; the caller zeroes the pair.
func (r *Runner) runSeating(seat0Def, seat1Def strategy.Definition, scenarios []domain.Scenario, quota int) (seatingOutcome, error) {
	var out seatingOutcome
	for _, sc := range scenarios {
		seat0, err := seat0Def.New(0, sc.Counts, sc.ValuesA, sc.RoundBudget)
		if err != nil {
			return seatingOutcome{}, fmt.Errorf("construct %s for seat 0: %w", seat0Def.ID, err)
		}
		seat1, err := seat1Def.New(1, sc.Counts, sc.ValuesB, sc.RoundBudget)
		if err != nil {
			return seatingOutcome{}, fmt.Errorf("construct %s for seat 1: %w", seat1Def.ID, err)
		}

		res := protocol.Run(seat0, seat1, sc)
		if res.Err != nil {
			r.logger.Printf("negotiation %s vs %s scenario=%d outcome=%s: %v",
				seat0Def.ID, seat1Def.ID, sc.ID, res.Outcome, res.Err)
		}
		out.profitSeat0 += res.ProfitSeat0
		out.profitSeat1 += res.ProfitSeat1

		if len(out.samples) < quota {
			out.samples = append(out.samples, res.Transcript(sc, seat0Def.ID, seat1Def.ID))
		}
	}
	return out, nil
}

// zeroResult keeps a failed pair well-formed: both agents present with zero
// profit and no transcripts.
func zeroResult(pair domain.PairKey) domain.MatchResult {
	return domain.MatchResult{
		Pair:        pair,
		Profit:      map[string]int{pair.A: 0, pair.B: 0},
		Transcripts: []domain.Negotiation{},
	}
}
