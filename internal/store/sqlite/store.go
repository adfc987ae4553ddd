package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"hagglebench/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tournaments (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	agent_count INTEGER NOT NULL,
	scenario_count INTEGER NOT NULL,
	total_target_worth INTEGER NOT NULL,
	workers INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_profits (
	tournament_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	profit INTEGER NOT NULL,
	PRIMARY KEY(tournament_id, agent_id),
	FOREIGN KEY(tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_agent_profits_rank ON agent_profits(tournament_id, profit DESC);

CREATE TABLE IF NOT EXISTS pair_transcripts (
	tournament_id TEXT NOT NULL,
	agent_a TEXT NOT NULL,
	agent_b TEXT NOT NULL,
	transcript_count INTEGER NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY(tournament_id, agent_a, agent_b),
	FOREIGN KEY(tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
);
`

// Store persists tournament results. Each unordered pair's sampled
// transcripts are kept as one zstd-compressed JSON document.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

func (s *Store) Close() error {
	_ = s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveTournament writes the run header, every agent's profit and one
// transcript document per pair in a single transaction.
func (s *Store) SaveTournament(ctx context.Context, res domain.TournamentResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save tournament: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Unix()
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO tournaments(
			id, started_at, finished_at, agent_count, scenario_count,
			total_target_worth, workers, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.StartedAt.Unix(), res.FinishedAt.Unix(), len(res.AgentIDs),
		res.ScenarioCount, res.TotalTargetWorth, res.Workers, now,
	)
	if err != nil {
		return fmt.Errorf("insert tournament: %w", err)
	}

	for agentID, profit := range res.Profit {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO agent_profits(tournament_id, agent_id, profit) VALUES(?, ?, ?)`,
			res.ID, agentID, profit,
		); err != nil {
			return fmt.Errorf("insert profit for %s: %w", agentID, err)
		}
	}

	for pair, transcripts := range res.Transcripts {
		raw, err := json.Marshal(transcripts)
		if err != nil {
			return fmt.Errorf("marshal transcripts for %s: %w", pair, err)
		}
		blob := s.enc.EncodeAll(raw, nil)
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO pair_transcripts(tournament_id, agent_a, agent_b, transcript_count, payload, created_at)
			VALUES(?, ?, ?, ?, ?, ?)`,
			res.ID, pair.A, pair.B, len(transcripts), blob, now,
		); err != nil {
			return fmt.Errorf("insert transcripts for %s: %w", pair, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tournament: %w", err)
	}
	return nil
}

type TournamentSummary struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	AgentCount       int       `json:"agent_count"`
	ScenarioCount    int       `json:"scenario_count"`
	TotalTargetWorth int       `json:"total_target_worth"`
	Workers          int       `json:"workers"`
}

func (s *Store) ListTournaments(ctx context.Context) ([]TournamentSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, agent_count, scenario_count, total_target_worth, workers
		FROM tournaments ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	result := make([]TournamentSummary, 0)
	for rows.Next() {
		var t TournamentSummary
		var started, finished int64
		if err := rows.Scan(&t.ID, &started, &finished, &t.AgentCount, &t.ScenarioCount, &t.TotalTargetWorth, &t.Workers); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		t.StartedAt = unixToTime(started)
		t.FinishedAt = unixToTime(finished)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tournaments: %w", err)
	}
	return result, nil
}

type AgentProfit struct {
	AgentID string `json:"agent_id"`
	Profit  int    `json:"profit"`
}

// Leaderboard returns the run's agents ranked by profit, ties broken by id.
func (s *Store) Leaderboard(ctx context.Context, tournamentID string) ([]AgentProfit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT agent_id, profit FROM agent_profits
		WHERE tournament_id = ?
		ORDER BY profit DESC, agent_id ASC`,
		tournamentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	result := make([]AgentProfit, 0)
	for rows.Next() {
		var item AgentProfit
		if err := rows.Scan(&item.AgentID, &item.Profit); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return result, nil
}

type PairSummary struct {
	Pair            domain.PairKey `json:"pair"`
	TranscriptCount int            `json:"transcript_count"`
}

func (s *Store) ListPairs(ctx context.Context, tournamentID string) ([]PairSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT agent_a, agent_b, transcript_count FROM pair_transcripts
		WHERE tournament_id = ?
		ORDER BY agent_a ASC, agent_b ASC`,
		tournamentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	result := make([]PairSummary, 0)
	for rows.Next() {
		var item PairSummary
		if err := rows.Scan(&item.Pair.A, &item.Pair.B, &item.TranscriptCount); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairs: %w", err)
	}
	return result, nil
}

// PairTranscripts loads and decompresses one pair's sampled negotiations.
func (s *Store) PairTranscripts(ctx context.Context, tournamentID string, pair domain.PairKey) ([]domain.Negotiation, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT payload FROM pair_transcripts
		WHERE tournament_id = ? AND agent_a = ? AND agent_b = ?`,
		tournamentID, pair.A, pair.B,
	)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		return nil, fmt.Errorf("get transcripts for %s: %w", pair, err)
	}
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress transcripts for %s: %w", pair, err)
	}
	var transcripts []domain.Negotiation
	if err := json.Unmarshal(raw, &transcripts); err != nil {
		return nil, fmt.Errorf("decode transcripts for %s: %w", pair, err)
	}
	return transcripts, nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
