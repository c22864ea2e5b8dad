package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func TestPostgresRepository_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(dsn, "AI Bot")
	if err != nil {
		t.Fatalf("NewPostgresRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	winner, loser := "w-"+suffix, "l-"+suffix
	r := result(uuid.NewString(), winner, loser, winner, false, false, 42, time.Now())
	if err := repo.RecordMatchResult(ctx, r); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordMatchResult(ctx, r); err != nil {
		t.Fatalf("record duplicate: %v", err)
	}

	lb, err := repo.FetchLeaderboard(ctx, 1000)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	found := false
	for _, s := range lb {
		if s.Username == winner {
			found = true
			if s.Wins != 1 || s.TotalGames != 1 {
				t.Fatalf("winner row %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("winner missing from leaderboard")
	}

	st, err := repo.FetchStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalGames < 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPostgresRepository_RequiresURL(t *testing.T) {
	if _, err := NewPostgresRepository("  ", "AI Bot"); err == nil {
		t.Fatalf("empty DATABASE_URL accepted")
	}
	var nilRepo *PostgresRepository
	if err := nilRepo.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
