package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"hagglebench/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}

func testResult() domain.TournamentResult {
	started := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	sc := domain.Scenario{
		ID:          0,
		Counts:      []int{2, 3},
		ValuesA:     []int{4, 8},
		ValuesB:     []int{10, 4},
		RoundBudget: 8,
		TargetWorth: 32,
	}
	pair := domain.PairKey{A: "conceder", B: "splitter"}
	return domain.TournamentResult{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Profit: map[string]int{
			"conceder": 25,
			"splitter": 40,
		},
		Transcripts: map[domain.PairKey][]domain.Negotiation{
			pair: {
				{
					Scenario:        sc,
					Seat0Agent:      "conceder",
					Seat1Agent:      "splitter",
					Outcome:         domain.OutcomeDeal,
					AllocationSeat0: domain.Allocation{0, 3},
					AllocationSeat1: domain.Allocation{2, 0},
					ProfitSeat0:     24,
					ProfitSeat1:     20,
					Turns: []domain.Turn{
						{Round: 1, OfferSeat0: domain.Allocation{2, 3}, OfferSeat1: domain.Allocation{2, 0}},
						{Round: 2},
					},
				},
				{
					Scenario:   sc,
					Seat0Agent: "splitter",
					Seat1Agent: "conceder",
					Outcome:    domain.OutcomeNoDeal,
					Turns: []domain.Turn{
						{Round: 1, OfferSeat0: domain.Allocation{2, 0}, OfferSeat1: domain.Allocation{0, 3}},
					},
				},
			},
		},
		AgentIDs:         []string{"conceder", "splitter"},
		ScenarioCount:    1,
		TotalTargetWorth: 32,
		Workers:          1,
	}
}

func TestSaveTournamentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	res := testResult()
	if err := store.SaveTournament(ctx, res); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	tournaments, err := store.ListTournaments(ctx)
	if err != nil {
		t.Fatalf("list tournaments: %v", err)
	}
	if len(tournaments) != 1 {
		t.Fatalf("listed %d tournaments, want 1", len(tournaments))
	}
	summary := tournaments[0]
	if summary.ID != res.ID {
		t.Fatalf("listed id %s, want %s", summary.ID, res.ID)
	}
	if summary.AgentCount != 2 || summary.ScenarioCount != 1 || summary.TotalTargetWorth != 32 || summary.Workers != 1 {
		t.Fatalf("summary %+v", summary)
	}
	if !summary.StartedAt.Equal(res.StartedAt) || !summary.FinishedAt.Equal(res.FinishedAt) {
		t.Fatalf("timestamps drifted: %+v", summary)
	}

	pair := domain.PairKey{A: "conceder", B: "splitter"}
	transcripts, err := store.PairTranscripts(ctx, res.ID, pair)
	if err != nil {
		t.Fatalf("load transcripts: %v", err)
	}
	if !reflect.DeepEqual(transcripts, res.Transcripts[pair]) {
		t.Fatalf("transcripts did not survive the round trip:\nstored %+v\nloaded %+v", res.Transcripts[pair], transcripts)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	res := testResult()
	res.Profit = map[string]int{
		"conceder": 40,
		"splitter": 40,
		"pushover": 10,
	}
	res.AgentIDs = []string{"conceder", "splitter", "pushover"}
	if err := store.SaveTournament(ctx, res); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	board, err := store.Leaderboard(ctx, res.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []AgentProfit{
		{AgentID: "conceder", Profit: 40},
		{AgentID: "splitter", Profit: 40},
		{AgentID: "pushover", Profit: 10},
	}
	if !reflect.DeepEqual(board, want) {
		t.Fatalf("leaderboard %+v, want %+v", board, want)
	}
}

func TestListPairs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	res := testResult()
	res.Transcripts[domain.PairKey{A: "conceder", B: "pushover"}] = []domain.Negotiation{}
	if err := store.SaveTournament(ctx, res); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	pairs, err := store.ListPairs(ctx, res.ID)
	if err != nil {
		t.Fatalf("list pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("listed %d pairs, want 2", len(pairs))
	}
	if pairs[0].Pair != (domain.PairKey{A: "conceder", B: "pushover"}) || pairs[0].TranscriptCount != 0 {
		t.Fatalf("first pair %+v", pairs[0])
	}
	if pairs[1].Pair != (domain.PairKey{A: "conceder", B: "splitter"}) || pairs[1].TranscriptCount != 2 {
		t.Fatalf("second pair %+v", pairs[1])
	}
}

func TestListTournamentsOrdersByStart(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	older := testResult()
	newer := testResult()
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.FinishedAt = older.FinishedAt.Add(time.Hour)
	for _, res := range []domain.TournamentResult{older, newer} {
		if err := store.SaveTournament(ctx, res); err != nil {
			t.Fatalf("save tournament: %v", err)
		}
	}

	tournaments, err := store.ListTournaments(ctx)
	if err != nil {
		t.Fatalf("list tournaments: %v", err)
	}
	if len(tournaments) != 2 {
		t.Fatalf("listed %d tournaments, want 2", len(tournaments))
	}
	if tournaments[0].ID != newer.ID || tournaments[1].ID != older.ID {
		t.Fatalf("expected newest first, got %s then %s", tournaments[0].ID, tournaments[1].ID)
	}
}

func TestPairTranscriptsUnknownPair(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	res := testResult()
	if err := store.SaveTournament(ctx, res); err != nil {
		t.Fatalf("save tournament: %v", err)
	}
	if _, err := store.PairTranscripts(ctx, res.ID, domain.PairKey{A: "x", B: "y"}); err == nil {
		t.Fatalf("expected an error for an unknown pair")
	}
}
