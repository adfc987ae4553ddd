package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"

	"hagglebench/internal/config"
	"hagglebench/internal/domain"
	"hagglebench/internal/match"
	"hagglebench/internal/scenario"
	sqlitestore "hagglebench/internal/store/sqlite"
	"hagglebench/internal/strategy"
	"hagglebench/internal/tournament"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: ~/.hagglebench/config.toml)")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	scenarioFlag := flag.Int("scenarios", 0, "number of scenarios to generate override")
	workersFlag := flag.Int("workers", 0, "worker pool size override")
	quotaFlag := flag.Int("quota", 0, "sampled transcripts per pair override")
	agentsFlag := flag.String("agents", "", "comma-separated strategy ids override")
	seedFlag := flag.Int64("seed", 0, "scenario generator seed override (0 = time-based)")
	profileFlag := flag.Bool("profile", false, "write a CPU profile for this run")
	flag.Parse()

	if *profileFlag {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbPath := firstNonEmpty(*dbPathFlag, cfg.Tournament.DBPath, "data/hagglebench.db")
	dbPath = filepath.Clean(dbPath)
	scenarioCount := intOrDefault(*scenarioFlag, intOrDefault(cfg.Tournament.ScenarioCount, 50))
	sampleQuota := intOrDefault(*quotaFlag, cfg.Tournament.SampleQuota)
	workers := intOrDefault(*workersFlag, cfg.Tournament.Workers)
	seed := *seedFlag
	if seed == 0 {
		seed = cfg.Tournament.Seed
	}

	agentIDs := cfg.Tournament.Agents
	if strings.TrimSpace(*agentsFlag) != "" {
		agentIDs = splitCSV(*agentsFlag)
	}
	if len(agentIDs) == 0 {
		agentIDs = strategy.RegisteredIDs()
	}
	defs, err := strategy.Resolve(agentIDs)
	if err != nil {
		log.Fatalf("resolve agent pool: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("create db directory: %v", err)
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate sqlite: %v", err)
	}

	gen := scenario.New(scenario.Config{
		Seed:         seed,
		TargetWorths: cfg.Tournament.TargetWorths,
	}, log.Default())
	scenarios, totalWorth := gen.Generate(scenarioCount)
	if len(scenarios) == 0 {
		log.Fatalf("scenario generation produced an empty batch (requested %d)", scenarioCount)
	}

	runner := match.NewRunner(sampleQuota, log.Default())
	sched := tournament.New(runner, tournament.Config{Workers: workers}, log.Default())

	log.Printf(
		"hagglebench started db=%s agents=%d scenarios=%d total_worth=%d",
		dbPath,
		len(defs),
		len(scenarios),
		totalWorth,
	)

	result, err := sched.Run(ctx, defs, scenarios)
	if err != nil {
		log.Fatalf("run tournament: %v", err)
	}

	if err := store.SaveTournament(ctx, result); err != nil {
		log.Printf("persist tournament %s failed: %v", result.ID, err)
	}

	printSummary(result)
}

func printSummary(result domain.TournamentResult) {
	type ranked struct {
		id     string
		profit int
	}
	ranking := make([]ranked, 0, len(result.Profit))
	for id, profit := range result.Profit {
		ranking = append(ranking, ranked{id: id, profit: profit})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].profit != ranking[j].profit {
			return ranking[i].profit > ranking[j].profit
		}
		return ranking[i].id < ranking[j].id
	})

	maxProfit := result.MaxAchievableProfit()
	fmt.Printf("tournament %s finished in %s\n", result.ID, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Printf("agents=%d scenarios=%d pairs=%d workers=%d max_achievable=%d\n",
		len(result.AgentIDs), result.ScenarioCount, len(result.Transcripts), result.Workers, maxProfit)
	for rank, item := range ranking {
		share := 0.0
		if maxProfit > 0 {
			share = 100 * float64(item.profit) / float64(maxProfit)
		}
		fmt.Printf("%2d. %-16s profit=%-8d (%.1f%% of max)\n", rank+1, item.id, item.profit, share)
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intOrDefault(value int, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
