package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LISTEN_ADDR", "DATABASE_URL", "REDIS_URL", "ANALYTICS_STREAM",
	"RESULTS_WEBHOOK_URL", "RESULTS_WEBHOOK_RETRIES", "MATCHMAKING_TIMEOUT_SEC",
	"GRACE_PERIOD_SEC", "SCRIPTED_DELAY_MS", "SCRIPTED_NAME", "ALLOWED_ORIGINS",
	"MESSAGES_DIR", "LEADERBOARD_LIMIT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.MatchmakingTimeout)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
	assert.Equal(t, 500*time.Millisecond, cfg.ScriptedDelay)
	assert.Equal(t, "AI Bot", cfg.ScriptedName)
	assert.Equal(t, "game-analytics", cfg.AnalyticsStream)
	assert.Equal(t, 10, cfg.LeaderboardLimit)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("MATCHMAKING_TIMEOUT_SEC", "3")
	t.Setenv("GRACE_PERIOD_SEC", "5")
	t.Setenv("SCRIPTED_DELAY_MS", "0")
	t.Setenv("SCRIPTED_NAME", "Robo")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LEADERBOARD_LIMIT", "-4")
	t.Setenv("RESULTS_WEBHOOK_URL", "https://hooks.example/results")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.MatchmakingTimeout)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.Equal(t, time.Duration(0), cfg.ScriptedDelay)
	assert.Equal(t, "Robo", cfg.ScriptedName)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.LeaderboardLimit, "invalid values keep the default")
}

func TestFromEnv_RejectsBadWebhook(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESULTS_WEBHOOK_URL", "ftp://nope")
	_, err := FromEnv()
	require.Error(t, err)
}
