package scenario

import (
	"log"
	"math/rand"
	"time"

	"hagglebench/internal/domain"
)

// Synthesis bounds for generated scenarios. Both seats share the item
// counts; each seat's valuation vector must weight the counts to exactly
// the scenario's target worth.
const (
	minItemTypes = 2
	maxItemTypes = 10
	minItemCount = 1
	maxItemCount = 5
	maxItemValue = 10

	zeroValueProb  = 0.05
	vectorAttempts = 100
	budgetWorthDiv = 4
)

// DefaultTargetWorths is the fixed set of scenario worths. The round budget
// of a scenario is its worth divided by budgetWorthDiv.
var DefaultTargetWorths = []int{32, 64, 128}

type Config struct {
	TargetWorths []int
	Seed         int64
}

func (c Config) withDefaults() Config {
	if len(c.TargetWorths) == 0 {
		c.TargetWorths = DefaultTargetWorths
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Generator produces batches of bargaining scenarios. It is not safe for
// concurrent use; the batch it returns is.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) *Generator {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}
}

// Generate synthesizes up to targetCount scenarios and returns them together
// with the running sum of their target worths. A scenario whose valuation
// vectors cannot be solved within the attempt cap is dropped, not retried,
// so the batch may come up short.
func (g *Generator) Generate(targetCount int) ([]domain.Scenario, int) {
	scenarios := make([]domain.Scenario, 0, targetCount)
	totalWorth := 0
	dropped := 0

	for i := 0; i < targetCount; i++ {
		types := minItemTypes + g.rng.Intn(maxItemTypes-minItemTypes+1)
		counts := make([]int, types)
		for j := range counts {
			counts[j] = minItemCount + g.rng.Intn(maxItemCount-minItemCount+1)
		}
		worth := g.cfg.TargetWorths[g.rng.Intn(len(g.cfg.TargetWorths))]

		valuesA, okA := g.synthesizeValues(counts, worth)
		valuesB, okB := g.synthesizeValues(counts, worth)
		if !okA || !okB {
			dropped++
			continue
		}

		scenarios = append(scenarios, domain.Scenario{
			ID:          len(scenarios),
			Counts:      counts,
			ValuesA:     valuesA,
			ValuesB:     valuesB,
			RoundBudget: worth / budgetWorthDiv,
			TargetWorth: worth,
		})
		totalWorth += worth
	}

	if dropped > 0 {
		g.logger.Printf("scenario generation dropped %d of %d candidates", dropped, targetCount)
	}
	return scenarios, totalWorth
}

// synthesizeValues builds one valuation vector whose weighted sum with
// counts equals worth exactly. The first len-2 entries are drawn randomly
// (small chance of zero, otherwise 1..maxItemValue); the last two are found
// by exhaustive search over 0..maxItemValue. A candidate vector is rejected
// when half or more of its entries are zero.
func (g *Generator) synthesizeValues(counts []int, worth int) ([]int, bool) {
	n := len(counts)
	for attempt := 0; attempt < vectorAttempts; attempt++ {
		values := make([]int, n)
		remaining := worth
		for j := 0; j < n-2; j++ {
			v := 0
			if g.rng.Float64() >= zeroValueProb {
				v = 1 + g.rng.Intn(maxItemValue)
			}
			values[j] = v
			remaining -= v * counts[j]
		}

		a, b, ok := solveLastTwo(counts[n-2], counts[n-1], remaining)
		if !ok {
			continue
		}
		values[n-2] = a
		values[n-1] = b

		if zeroCount(values)*2 >= n {
			continue
		}
		return values, true
	}
	return nil, false
}

// solveLastTwo searches 0..maxItemValue for a pair of values closing the
// remaining worth exactly: a*countA + b*countB == remaining.
func solveLastTwo(countA, countB, remaining int) (int, int, bool) {
	if remaining < 0 {
		return 0, 0, false
	}
	for a := 0; a <= maxItemValue; a++ {
		rest := remaining - a*countA
		if rest < 0 {
			break
		}
		if rest%countB != 0 {
			continue
		}
		b := rest / countB
		if b <= maxItemValue {
			return a, b, true
		}
	}
	return 0, 0, false
}

func zeroCount(values []int) int {
	n := 0
	for _, v := range values {
		if v == 0 {
			n++
		}
	}
	return n
}
