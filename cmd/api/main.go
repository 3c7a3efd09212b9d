package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"produce-market/internal/config"
	"produce-market/internal/database"
	"produce-market/internal/logger"
	"produce-market/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "produce-market:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// A second signal kills the process.
		stop()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Forced shutdown", zap.Error(err))
		}
		return srv.Close()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*server.Server, error) {
	dbService, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Database connected", zap.Any("health", dbService.Health()))

	if err := database.RunMigrations(ctx, dbService.DB(), log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running degraded", zap.Error(err))
	}

	srv, err := server.NewServer(ctx, cfg, log, dbService.DB(), redisClient, err == nil)
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}
	return srv, nil
}
