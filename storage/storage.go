package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS round_history (
	id          UUID PRIMARY KEY,
	played_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	session_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	player_name TEXT NOT NULL,
	score       INT NOT NULL,
	moves       INT NOT NULL,
	deck_size   INT NOT NULL,
	duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_history_user ON round_history(user_id, played_at DESC);
CREATE TABLE IF NOT EXISTS player_stats (
	user_id          TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL DEFAULT '',
	rounds_won       INT NOT NULL DEFAULT 0,
	best_moves       INT NOT NULL,
	total_moves      BIGINT NOT NULL DEFAULT 0,
	best_duration_ms BIGINT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_player_stats_best ON player_stats(best_moves ASC, rounds_won DESC);
`

const upsertStatsSQL = `
INSERT INTO player_stats (user_id, display_name, rounds_won, best_moves, total_moves, best_duration_ms, updated_at)
VALUES ($1, $2, 1, $3, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE SET
	display_name     = EXCLUDED.display_name,
	rounds_won       = player_stats.rounds_won + 1,
	best_moves       = LEAST(player_stats.best_moves, EXCLUDED.best_moves),
	total_moves      = player_stats.total_moves + EXCLUDED.total_moves,
	best_duration_ms = LEAST(player_stats.best_duration_ms, EXCLUDED.best_duration_ms),
	updated_at       = now()`

// RoundResult is one won round to be persisted.
type RoundResult struct {
	SessionID  string
	UserID     string
	PlayerName string
	Score      int
	Moves      int
	DeckSize   int
	Duration   time.Duration
}

// Store persists and retrieves round history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// InsertRoundResult records a won round and updates the player's stats in one transaction.
// Rounds without a user id (guests) are not recorded.
func (s *Store) InsertRoundResult(ctx context.Context, r RoundResult) error {
	if s == nil || s.pool == nil || r.UserID == "" {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	durationMS := r.Duration.Milliseconds()
	_, err = tx.Exec(ctx, `
		INSERT INTO round_history (id, session_id, user_id, player_name, score, moves, deck_size, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), r.SessionID, r.UserID, r.PlayerName, r.Score, r.Moves, r.DeckSize, durationMS)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	if _, err := tx.Exec(ctx, upsertStatsSQL, r.UserID, r.PlayerName, r.Moves, durationMS); err != nil {
		return fmt.Errorf("update player stats: %w", err)
	}
	return tx.Commit(ctx)
}

// RoundRecord is a single row returned for the history API.
type RoundRecord struct {
	ID         string `json:"id"`
	PlayedAt   string `json:"played_at"` // ISO8601
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Moves      int    `json:"moves"`
	DeckSize   int    `json:"deck_size"`
	DurationMS int64  `json:"duration_ms"`
}

// ListByUserID returns the user's won rounds, ordered by played_at DESC.
func (s *Store) ListByUserID(ctx context.Context, userID string) ([]RoundRecord, error) {
	if s == nil || s.pool == nil {
		return []RoundRecord{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, played_at, session_id, player_name, score, moves, deck_size, duration_ms
		FROM round_history
		WHERE user_id = $1
		ORDER BY played_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoundRecord{}
	for rows.Next() {
		var r RoundRecord
		var playedAt time.Time
		if err := rows.Scan(&r.ID, &playedAt, &r.SessionID, &r.PlayerName, &r.Score, &r.Moves, &r.DeckSize, &r.DurationMS); err != nil {
			return nil, err
		}
		r.PlayedAt = playedAt.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LeaderboardEntry is a single row for the leaderboard API.
type LeaderboardEntry struct {
	UserID         string  `json:"user_id"`
	DisplayName    string  `json:"display_name"`
	RoundsWon      int     `json:"rounds_won"`
	BestMoves      int     `json:"best_moves"`
	AverageMoves   float64 `json:"average_moves"`
	BestDurationMS int64   `json:"best_duration_ms"`
	IsCurrentUser  bool    `json:"is_current_user,omitempty"`
}

// ListLeaderboard returns entries ordered by best_moves ASC, then rounds_won DESC.
func (s *Store) ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	if s == nil || s.pool == nil {
		return []LeaderboardEntry{}, nil
	}
	limit, offset = normalizePage(limit, offset)
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, display_name, rounds_won, best_moves, total_moves, best_duration_ms
		FROM player_stats
		ORDER BY best_moves ASC, rounds_won DESC, best_duration_ms ASC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LeaderboardEntry{}
	for rows.Next() {
		e, err := scanLeaderboardEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLeaderboardEntryByUserID returns one player's leaderboard entry by user_id, or (nil, nil) if not found.
func (s *Store) GetLeaderboardEntryByUserID(ctx context.Context, userID string) (*LeaderboardEntry, error) {
	if s == nil || s.pool == nil || userID == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, display_name, rounds_won, best_moves, total_moves, best_duration_ms
		FROM player_stats
		WHERE user_id = $1`,
		userID)
	e, err := scanLeaderboardEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func scanLeaderboardEntry(row pgx.Row) (LeaderboardEntry, error) {
	var e LeaderboardEntry
	var totalMoves int64
	if err := row.Scan(&e.UserID, &e.DisplayName, &e.RoundsWon, &e.BestMoves, &totalMoves, &e.BestDurationMS); err != nil {
		return LeaderboardEntry{}, err
	}
	e.AverageMoves = averageMoves(totalMoves, e.RoundsWon)
	return e, nil
}

// normalizePage clamps leaderboard paging parameters.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// averageMoves returns total/rounds rounded to one decimal, or 0 with no rounds.
func averageMoves(total int64, rounds int) float64 {
	if rounds <= 0 {
		return 0
	}
	return math.Round(float64(total)/float64(rounds)*10) / 10
}
