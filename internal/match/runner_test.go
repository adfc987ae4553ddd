package match

import (
	"io"
	"log"
	"testing"

	"hagglebench/internal/domain"
	"hagglebench/internal/strategy"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testScenarios(n int) []domain.Scenario {
	scenarios := make([]domain.Scenario, n)
	for i := range scenarios {
		scenarios[i] = domain.Scenario{
			ID:          i,
			Counts:      []int{2, 3},
			ValuesA:     []int{4, 8},
			ValuesB:     []int{10, 4},
			RoundBudget: 8,
			TargetWorth: 32,
		}
	}
	return scenarios
}

func mustLookup(t *testing.T, id string) strategy.Definition {
	t.Helper()
	def, err := strategy.Lookup(id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	return def
}

func TestRunPlaysBothSeatings(t *testing.T) {
	runner := NewRunner(4, quietLogger())
	scenarios := testScenarios(3)

	res := runner.Run(mustLookup(t, "hardliner"), mustLookup(t, "pushover"), scenarios)
	if res.Pair != (domain.PairKey{A: "hardliner", B: "pushover"}) {
		t.Fatalf("pair %s", res.Pair)
	}
	// The hardliner captures the full worth in either seat: 32 per scenario
	// per seating. The pushover walks away with nothing.
	if got := res.Profit["hardliner"]; got != 192 {
		t.Fatalf("hardliner profit %d, want 192", got)
	}
	if got := res.Profit["pushover"]; got != 0 {
		t.Fatalf("pushover profit %d, want 0", got)
	}
}

func TestRunSamplesAcrossSeatings(t *testing.T) {
	runner := NewRunner(2, quietLogger())
	scenarios := testScenarios(3)

	res := runner.Run(mustLookup(t, "splitter"), mustLookup(t, "conceder"), scenarios)
	if len(res.Transcripts) != 2 {
		t.Fatalf("sampled %d transcripts, want 2", len(res.Transcripts))
	}
	forward := res.Transcripts[0]
	reverse := res.Transcripts[1]
	if forward.Seat0Agent != "splitter" || forward.Seat1Agent != "conceder" {
		t.Fatalf("forward sample seats %s/%s", forward.Seat0Agent, forward.Seat1Agent)
	}
	if reverse.Seat0Agent != "conceder" || reverse.Seat1Agent != "splitter" {
		t.Fatalf("reverse sample seats %s/%s", reverse.Seat0Agent, reverse.Seat1Agent)
	}
	if forward.Scenario.ID != 0 || reverse.Scenario.ID != 0 {
		t.Fatalf("samples should come in generation order, got %d/%d", forward.Scenario.ID, reverse.Scenario.ID)
	}
}

func TestRunOddQuotaFavorsForwardSeating(t *testing.T) {
	runner := NewRunner(5, quietLogger())
	scenarios := testScenarios(10)

	res := runner.Run(mustLookup(t, "splitter"), mustLookup(t, "conceder"), scenarios)
	if len(res.Transcripts) != 5 {
		t.Fatalf("sampled %d transcripts, want 5", len(res.Transcripts))
	}
	forward := 0
	for _, tr := range res.Transcripts {
		if tr.Seat0Agent == "splitter" {
			forward++
		}
	}
	if forward != 3 {
		t.Fatalf("forward seating sampled %d of 5, want 3", forward)
	}
}

func TestRunQuotaCapsShortBatches(t *testing.T) {
	runner := NewRunner(10, quietLogger())
	scenarios := testScenarios(2)

	res := runner.Run(mustLookup(t, "splitter"), mustLookup(t, "conceder"), scenarios)
	// Two scenarios per seating, four negotiations total.
	if len(res.Transcripts) != 4 {
		t.Fatalf("sampled %d transcripts, want 4", len(res.Transcripts))
	}
}

func TestRunZeroesUnconstructiblePairs(t *testing.T) {
	runner := NewRunner(4, quietLogger())
	scenarios := testScenarios(3)

	res := runner.Run(mustLookup(t, "hardliner"), strategy.Unloadable("phantom"), scenarios)
	if res.Pair != (domain.PairKey{A: "hardliner", B: "phantom"}) {
		t.Fatalf("pair %s", res.Pair)
	}
	if res.Profit["hardliner"] != 0 || res.Profit["phantom"] != 0 {
		t.Fatalf("profits %v, want both zero", res.Profit)
	}
	if len(res.Transcripts) != 0 {
		t.Fatalf("unusable pair kept %d transcripts", len(res.Transcripts))
	}
}

func TestRunSamplesErrorOutcomes(t *testing.T) {
	runner := NewRunner(4, quietLogger())
	scenarios := testScenarios(2)

	res := runner.Run(mustLookup(t, "splitter"), strategy.Broken("broken"), scenarios)
	if res.Profit["splitter"] != 0 || res.Profit["broken"] != 0 {
		t.Fatalf("profits %v, want both zero", res.Profit)
	}
	if len(res.Transcripts) == 0 {
		t.Fatalf("failed negotiations should still be sampled")
	}
	for _, tr := range res.Transcripts {
		if !tr.Outcome.IsError() {
			t.Fatalf("transcript outcome %s, want a seat error", tr.Outcome)
		}
		errorSeat := tr.Seat0Agent
		if tr.Outcome == domain.OutcomeErrorSeat1 {
			errorSeat = tr.Seat1Agent
		}
		if errorSeat != "broken" {
			t.Fatalf("outcome %s blames %s in transcript %+v", tr.Outcome, errorSeat, tr)
		}
	}
}
