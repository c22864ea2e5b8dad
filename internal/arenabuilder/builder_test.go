package arenabuilder

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-connect4/internal/config"
	"github.com/park285/cheese-connect4/internal/store"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		AnalyticsStream:    "game-analytics",
		MatchmakingTimeout: time.Minute,
		GracePeriod:        time.Minute,
		ScriptedName:       "AI Bot",
		LeaderboardLimit:   10,
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil config accepted")
	}
}

func TestNew_WiresStreamAndMemoryStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.Repo.(*store.MemoryRepository); !ok {
		t.Fatalf("repo = %T, want memory fallback", d.Repo)
	}
	if d.Redis == nil || d.Server == nil || d.Hub == nil {
		t.Fatalf("incomplete deps: %+v", d)
	}

	a := d.Arena
	if err := a.Join("c1", "alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := a.Join("c2", "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := a.Move("c1", 0); err != nil {
			t.Fatalf("Move: %v", err)
		}
		if err := a.Move("c2", 1); err != nil {
			t.Fatalf("Move: %v", err)
		}
	}
	if err := a.Move("c1", 0); err != nil {
		t.Fatalf("winning Move: %v", err)
	}

	// Close flushes the result write and the event queue.
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := d.Repo.FetchLeaderboard(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchLeaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].Username != "alice" || rows[0].Wins != 1 {
		t.Fatalf("leaderboard = %+v", rows)
	}

	entries, err := mr.Stream("game-analytics")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	// start, seven moves, end
	if len(entries) != 9 {
		t.Fatalf("stream has %d entries, want 9", len(entries))
	}
}
