package tournament

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"hagglebench/internal/domain"
	"hagglebench/internal/strategy"
)

// MatchRunner executes one unordered pair of agents over the scenario batch.
// Implementations must be safe for concurrent use by multiple workers.
type MatchRunner interface {
	Run(defA, defB strategy.Definition, scenarios []domain.Scenario) domain.MatchResult
}

type Config struct {
	Workers int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if n := runtime.NumCPU(); c.Workers > n {
		c.Workers = n
	}
	return c
}

// Scheduler enumerates every unordered pair from the agent pool, dispatches
// matches across a bounded worker pool and merges the partial results.
// Workers share nothing mutable: the scenario batch is read-only and each
// MatchResult crosses back to the single coordinating goroutine, which is
// the only place tournament-wide state is touched.
type Scheduler struct {
	runner MatchRunner
	cfg    Config
	logger *log.Logger
}

func New(runner MatchRunner, cfg Config, logger *log.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{runner: runner, cfg: cfg, logger: logger}
}

type pairTask struct {
	a strategy.Definition
	b strategy.Definition
}

// Run plays the full round-robin. The returned result covers every
// enumerated pair even when matches could not run (those stay zero-valued);
// cancellation via ctx stops dispatching new matches but never yields a
// partial result shape.
func (s *Scheduler) Run(ctx context.Context, defs []strategy.Definition, scenarios []domain.Scenario) (domain.TournamentResult, error) {
	if len(defs) < 2 {
		return domain.TournamentResult{}, fmt.Errorf("tournament needs at least two agents, got %d", len(defs))
	}
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if seen[def.ID] {
			return domain.TournamentResult{}, fmt.Errorf("duplicate agent id %q in pool", def.ID)
		}
		seen[def.ID] = true
	}

	totalWorth := 0
	for _, sc := range scenarios {
		totalWorth += sc.TargetWorth
	}

	result := domain.TournamentResult{
		ID:               uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		Profit:           make(map[string]int, len(defs)),
		Transcripts:      make(map[domain.PairKey][]domain.Negotiation),
		AgentIDs:         make([]string, 0, len(defs)),
		ScenarioCount:    len(scenarios),
		TotalTargetWorth: totalWorth,
	}

	tasks := make([]pairTask, 0, len(defs)*(len(defs)-1)/2)
	for i := 0; i < len(defs); i++ {
		result.AgentIDs = append(result.AgentIDs, defs[i].ID)
		result.Profit[defs[i].ID] = 0
		for j := i + 1; j < len(defs); j++ {
			tasks = append(tasks, pairTask{a: defs[i], b: defs[j]})
			result.Transcripts[domain.PairKey{A: defs[i].ID, B: defs[j].ID}] = []domain.Negotiation{}
		}
	}

	workers := s.cfg.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	result.Workers = workers

	if workers <= 1 || len(tasks) == 1 {
		s.runSequential(ctx, tasks, scenarios, &result)
	} else {
		s.runParallel(ctx, tasks, scenarios, workers, &result)
	}

	result.FinishedAt = time.Now().UTC()
	return result, nil
}

func (s *Scheduler) runSequential(ctx context.Context, tasks []pairTask, scenarios []domain.Scenario, result *domain.TournamentResult) {
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			s.logger.Printf("tournament canceled, remaining pairs stay zero-valued: %v", ctx.Err())
			return
		default:
		}
		merge(result, s.runMatch(task, scenarios))
	}
}

func (s *Scheduler) runParallel(ctx context.Context, tasks []pairTask, scenarios []domain.Scenario, workers int, result *domain.TournamentResult) {
	taskCh := make(chan pairTask)
	resultCh := make(chan domain.MatchResult, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- s.runMatch(task, scenarios)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				s.logger.Printf("tournament canceled, remaining pairs stay zero-valued: %v", ctx.Err())
				return
			case taskCh <- task:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Merging is commutative, so unordered completion is fine; only this
	// goroutine touches the shared result.
	for res := range resultCh {
		merge(result, res)
	}
}

// runMatch isolates the worker from misbehaving strategy code: a panic
// inside a match degrades that pair to a zero-valued result.
func (s *Scheduler) runMatch(task pairTask, scenarios []domain.Scenario) (res domain.MatchResult) {
	pair := domain.PairKey{A: task.a.ID, B: task.b.ID}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("match %s panicked: %v", pair, r)
			res = domain.MatchResult{
				Pair:        pair,
				Profit:      map[string]int{pair.A: 0, pair.B: 0},
				Transcripts: []domain.Negotiation{},
			}
		}
	}()
	return s.runner.Run(task.a, task.b, scenarios)
}

func merge(result *domain.TournamentResult, res domain.MatchResult) {
	for id, profit := range res.Profit {
		result.Profit[id] += profit
	}
	result.Transcripts[res.Pair] = append(result.Transcripts[res.Pair], res.Transcripts...)
}
