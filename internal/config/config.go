package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string

	DatabaseURL string
	RedisURL    string

	AnalyticsStream   string
	ResultsWebhookURL string
	WebhookRetries    int

	MatchmakingTimeout time.Duration
	GracePeriod        time.Duration
	ScriptedDelay      time.Duration
	ScriptedName       string

	AllowedOrigins   []string
	MessagesDir      string
	LeaderboardLimit int
}

// Load reads an optional .env file, then the process environment.
func Load() (*AppConfig, error) {
	// .env 파일은 없어도 된다
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":8080",
		AnalyticsStream:    "game-analytics",
		WebhookRetries:     2,
		MatchmakingTimeout: 10 * time.Second,
		GracePeriod:        30 * time.Second,
		ScriptedDelay:      500 * time.Millisecond,
		ScriptedName:       "AI Bot",
		LeaderboardLimit:   10,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("ANALYTICS_STREAM")); v != "" {
		cfg.AnalyticsStream = v
	}
	cfg.ResultsWebhookURL = strings.TrimSpace(os.Getenv("RESULTS_WEBHOOK_URL"))
	if n, ok := nonNegativeInt("RESULTS_WEBHOOK_RETRIES"); ok {
		cfg.WebhookRetries = n
	}

	if n, ok := positiveInt("MATCHMAKING_TIMEOUT_SEC"); ok {
		cfg.MatchmakingTimeout = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("GRACE_PERIOD_SEC"); ok {
		cfg.GracePeriod = time.Duration(n) * time.Second
	}
	if n, ok := nonNegativeInt("SCRIPTED_DELAY_MS"); ok {
		cfg.ScriptedDelay = time.Duration(n) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv("SCRIPTED_NAME")); v != "" {
		cfg.ScriptedName = v
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	if n, ok := positiveInt("LEADERBOARD_LIMIT"); ok {
		cfg.LeaderboardLimit = n
	}

	if cfg.ResultsWebhookURL != "" {
		u, err := url.Parse(cfg.ResultsWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("RESULTS_WEBHOOK_URL must be an http(s) URL: %q", cfg.ResultsWebhookURL)
		}
	}
	if len(cfg.ScriptedName) > 32 {
		return nil, errors.New("SCRIPTED_NAME must be at most 32 bytes")
	}
	return cfg, nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func nonNegativeInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
