package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-connect4/internal/match"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    id SERIAL PRIMARY KEY,
    match_id VARCHAR(64) UNIQUE NOT NULL,
    player1 VARCHAR(255) NOT NULL,
    player2 VARCHAR(255) NOT NULL,
    winner VARCHAR(255),
    is_draw BOOLEAN DEFAULT FALSE,
    is_bot_game BOOLEAN DEFAULT FALSE,
    end_reason VARCHAR(32),
    moves_count INTEGER,
    duration_seconds INTEGER,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS players (
    username VARCHAR(255) PRIMARY KEY,
    wins INTEGER DEFAULT 0,
    losses INTEGER DEFAULT 0,
    draws INTEGER DEFAULT 0,
    total_games INTEGER DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW()
);`

// PostgresRepository stores results in the games and players tables.
type PostgresRepository struct {
	db           *sql.DB
	scriptedName string
}

func NewPostgresRepository(databaseURL, scriptedName string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresRepository{db: db, scriptedName: scriptedName}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordMatchResult inserts the game row and updates both players' counters
// in one transaction. A repeated match id is ignored.
func (r *PostgresRepository) RecordMatchResult(ctx context.Context, res match.Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	if err := validate(res); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var winner sql.NullString
	if res.Winner != "" {
		winner = sql.NullString{String: res.Winner, Valid: true}
	}

	out, err := tx.ExecContext(ctx, `INSERT INTO games (
        match_id, player1, player2, winner, is_draw, is_bot_game,
        end_reason, moves_count, duration_seconds, created_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      ON CONFLICT (match_id) DO NOTHING`,
		res.MatchID, res.Player1, res.Player2, winner, res.Draw, res.Scripted,
		string(res.Reason), res.Moves, res.DurationSeconds, endedAt(res),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	for _, name := range []string{res.Player1, res.Player2} {
		if name == r.scriptedName && res.Scripted {
			continue
		}
		w, l, d := outcomeFor(res, name)
		_, err := tx.ExecContext(ctx, `INSERT INTO players (username, wins, losses, draws, total_games)
           VALUES ($1, $2, $3, $4, 1)
           ON CONFLICT (username) DO UPDATE SET
             wins = players.wins + $2,
             losses = players.losses + $3,
             draws = players.draws + $4,
             total_games = players.total_games + 1`,
			name, w, l, d,
		)
		if err != nil {
			return fmt.Errorf("update player %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) FetchLeaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT username, wins, losses, draws, total_games,
        ROW_NUMBER() OVER (ORDER BY wins DESC, total_games ASC, username ASC) AS rank
      FROM players
      ORDER BY wins DESC, total_games ASC, username ASC
      LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Standing, 0, limit)
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.Username, &s.Wins, &s.Losses, &s.Draws, &s.TotalGames, &s.Rank); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) FetchStats(ctx context.Context) (Stats, error) {
	var st Stats
	if r == nil || r.db == nil {
		return st, nil
	}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(moves_count), 0),
        (SELECT AVG(duration_seconds) FROM games WHERE is_bot_game = FALSE)
      FROM games`).Scan(&st.TotalGames, &st.TotalMoves, &avg)
	if err != nil {
		return st, fmt.Errorf("stats totals: %w", err)
	}
	if avg.Valid {
		st.AverageDuration = int(avg.Float64 + 0.5)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT winner, COUNT(*) AS wins
      FROM games
      WHERE winner IS NOT NULL AND winner <> $1
      GROUP BY winner
      ORDER BY wins DESC, winner ASC
      LIMIT 3`, r.scriptedName)
	if err != nil {
		return st, fmt.Errorf("stats winners: %w", err)
	}
	for rows.Next() {
		var w WinnerCount
		if err := rows.Scan(&w.Winner, &w.Wins); err != nil {
			rows.Close()
			return st, err
		}
		st.TopWinners = append(st.TopWinners, w)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*)
      FROM games
      WHERE created_at > NOW() - INTERVAL '24 hours'
      GROUP BY hour
      ORDER BY hour ASC`)
	if err != nil {
		return st, fmt.Errorf("stats hourly: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h HourCount
		if err := rows.Scan(&h.Hour, &h.Count); err != nil {
			return st, err
		}
		st.HourlyActivity = append(st.HourlyActivity, h)
	}
	return st, rows.Err()
}

func endedAt(r match.Result) time.Time {
	if r.EndedAt.IsZero() {
		return time.Now()
	}
	return r.EndedAt
}
