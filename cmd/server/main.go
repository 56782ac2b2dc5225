// Package main is the entry point for the quantdash analytics service.
// It wires the historical price store, the analytics, risk, derivatives
// and indicator services, the HTTP API and the nightly snapshot job.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quantdash/quantdash/internal/config"
	"github.com/quantdash/quantdash/internal/database"
	"github.com/quantdash/quantdash/internal/modules/analytics"
	"github.com/quantdash/quantdash/internal/modules/calculations"
	"github.com/quantdash/quantdash/internal/modules/indicators"
	"github.com/quantdash/quantdash/internal/modules/risk"
	"github.com/quantdash/quantdash/internal/modules/universe"
	"github.com/quantdash/quantdash/internal/scheduler"
	"github.com/quantdash/quantdash/internal/server"
	"github.com/quantdash/quantdash/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Int("port", cfg.Port).Str("data_dir", cfg.DataDir).Msg("Starting quantdash")

	// Databases: history.db holds daily prices, cache.db holds
	// precomputed analysis results
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	history := universe.NewHistoryDB(historyDB.Conn(), log)
	if err := history.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}

	cache := calculations.NewCache(cacheDB.Conn(), log)
	if err := cache.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	// Services
	analyticsService := analytics.NewService(history, log)
	riskService := risk.NewService(analyticsService, log)
	indicatorService := indicators.NewService(history, cfg.RiskFreeRate, log)
	analysisService := calculations.NewAnalysisService(analyticsService, riskService, cache, log)

	// Nightly snapshot job
	sched := scheduler.New(log)
	snapshotJob := scheduler.NewSnapshotJob(
		analysisService,
		cache,
		cfg.SnapshotTickers,
		cfg.BenchmarkSymbol,
		0,
		log,
	)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SnapshotSchedule).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:        log,
		Cfg:        cfg,
		HistoryDB:  historyDB,
		CacheDB:    cacheDB,
		History:    history,
		Analytics:  analyticsService,
		Risk:       riskService,
		Indicators: indicatorService,
		Analysis:   analysisService,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("quantdash stopped")
}
