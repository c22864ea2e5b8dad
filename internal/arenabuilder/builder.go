package arenabuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-connect4/internal/analytics"
	"github.com/park285/cheese-connect4/internal/arena"
	"github.com/park285/cheese-connect4/internal/config"
	"github.com/park285/cheese-connect4/internal/msgcat"
	"github.com/park285/cheese-connect4/internal/render"
	"github.com/park285/cheese-connect4/internal/resultsink"
	"github.com/park285/cheese-connect4/internal/store"
	"github.com/park285/cheese-connect4/internal/wsserver"
)

type Deps struct {
	Arena    *arena.Service
	Server   *wsserver.Server
	Hub      *wsserver.Hub
	Repo     store.Repository
	Redis    *redis.Client
	Registry *prometheus.Registry
}

// New wires every component from cfg. Postgres and Redis are optional; the
// in-memory store and the log sink stand in when they are not configured.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Registry: prometheus.NewRegistry()}
	d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	// Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := store.NewPostgresRepository(cfg.DatabaseURL, cfg.ScriptedName)
		if err != nil {
			return nil, fmt.Errorf("init repository: %w", err)
		}
		d.Repo = repo
	} else {
		logger.Warn("DATABASE_URL not set; results are kept in memory")
		d.Repo = store.NewMemoryRepository(cfg.ScriptedName, clockwork.NewRealClock())
	}

	// Analytics
	var sink arena.EventSink
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := analytics.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = d.Repo.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.Redis = rdb
		sink = analytics.NewStreamSink(rdb, cfg.AnalyticsStream)
	} else {
		sink = analytics.LogSink{Logger: logger.Named("analytics")}
	}

	// Results: repository first, then the optional webhook
	results := resultsink.Fanout{d.Repo}
	if cfg.ResultsWebhookURL != "" {
		results = append(results, resultsink.NewWebhook(cfg.ResultsWebhookURL,
			resultsink.WithRetry(cfg.WebhookRetries),
			resultsink.WithTimeout(5*time.Second),
		))
	}

	d.Hub = wsserver.NewHub(logger.Named("ws"))
	d.Arena = arena.New(arena.Config{
		MatchmakingTimeout: cfg.MatchmakingTimeout,
		GracePeriod:        cfg.GracePeriod,
		ScriptedDelay:      cfg.ScriptedDelay,
		ScriptedName:       cfg.ScriptedName,
	}, d.Hub,
		arena.WithResults(results),
		arena.WithEvents(sink),
		arena.WithCatalog(cat),
		arena.WithMetrics(arena.NewMetrics(d.Registry)),
		arena.WithLogger(logger.Named("arena")),
	)
	d.Server = wsserver.New(wsserver.Deps{
		Arena:            d.Arena,
		Hub:              d.Hub,
		Store:            d.Repo,
		Renderer:         render.NewRenderer(),
		Gatherer:         d.Registry,
		Logger:           logger.Named("http"),
		AllowedOrigins:   cfg.AllowedOrigins,
		LeaderboardLimit: cfg.LeaderboardLimit,
	})
	return d, nil
}

// Close drops sockets, stops the arena (flushing pending results and
// events) and then releases storage.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	if d.Server != nil {
		d.Server.Shutdown()
	}
	if d.Arena != nil {
		d.Arena.Close()
	}
	var errs []error
	if d.Repo != nil {
		if err := d.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
