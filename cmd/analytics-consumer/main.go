package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-connect4/internal/analytics"
	appcfg "github.com/park285/cheese-connect4/internal/config"
	"github.com/park285/cheese-connect4/internal/obslog"
)

// analytics-consumer tails the telemetry stream and logs every event.
func main() {
	if err := obslog.InitFromEnv("analytics-consumer"); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}
	if cfg.RedisURL == "" {
		logger.Fatal("REDIS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := analytics.NewRedisClient(initCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		logger.Fatal("redis init error", zap.Error(err))
	}
	defer rdb.Close()

	// "$" = only events appended from now on; ANALYTICS_FROM=0 replays the stream
	from := os.Getenv("ANALYTICS_FROM")
	if from == "" {
		from = "$"
	}
	consumer := analytics.NewConsumer(rdb, cfg.AnalyticsStream, from, logger)
	logger.Info("consuming", zap.String("stream", cfg.AnalyticsStream), zap.String("from", from))

	err = consumer.Run(ctx, func(e analytics.Event) {
		logger.Info("event",
			zap.String("type", string(e.Type)),
			zap.String("match_id", e.MatchID),
			zap.Strings("players", e.Players),
			zap.String("player", e.Player),
			zap.Intp("column", e.Column),
			zap.Int("move", e.MoveNumber),
			zap.String("winner", e.Winner),
			zap.String("reason", e.Reason),
			zap.Int("duration_seconds", e.DurationSeconds),
			zap.Time("at", e.At),
		)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
}
