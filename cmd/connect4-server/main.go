package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-connect4/internal/arenabuilder"
	appcfg "github.com/park285/cheese-connect4/internal/config"
	"github.com/park285/cheese-connect4/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv("connect4-server"); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := arenabuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           deps.Server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Duration("matchmaking_timeout", cfg.MatchmakingTimeout),
			zap.Duration("grace_period", cfg.GracePeriod),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// 소켓을 먼저 닫아야 Shutdown이 hijack된 연결을 기다리지 않는다
		deps.Server.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("close error", zap.Error(err))
	}
	logger.Info("stopped")
}
