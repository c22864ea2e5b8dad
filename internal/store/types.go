package store

import (
	"context"
	"errors"

	"github.com/park285/cheese-connect4/internal/match"
)

var ErrInvalidResult = errors.New("invalid match result")

// Standing is one leaderboard row.
type Standing struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	TotalGames int    `json:"totalGames"`
}

type WinnerCount struct {
	Winner string `json:"winner"`
	Wins   int    `json:"wins"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Stats aggregates recorded matches.
type Stats struct {
	TotalGames      int           `json:"totalGames"`
	AverageDuration int           `json:"averageDuration"`
	TotalMoves      int           `json:"totalMoves"`
	TopWinners      []WinnerCount `json:"topWinners"`
	HourlyActivity  []HourCount   `json:"hourlyActivity"`
}

// Repository persists finished matches and serves aggregate reads.
type Repository interface {
	RecordMatchResult(ctx context.Context, r match.Result) error
	FetchLeaderboard(ctx context.Context, limit int) ([]Standing, error)
	FetchStats(ctx context.Context) (Stats, error)
	Close() error
}

func validate(r match.Result) error {
	if r.MatchID == "" || r.Player1 == "" || r.Player2 == "" {
		return ErrInvalidResult
	}
	if r.Abandoned {
		return ErrInvalidResult
	}
	return nil
}

// outcomeFor returns the per-player deltas (win, loss, draw) for name.
func outcomeFor(r match.Result, name string) (int, int, int) {
	switch {
	case r.Draw:
		return 0, 0, 1
	case r.Winner == name:
		return 1, 0, 0
	case r.Winner != "":
		return 0, 1, 0
	}
	return 0, 0, 0
}
