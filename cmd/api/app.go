package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/buybox-recommender/internal/config"
	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/jobs"
	"github.com/denisok6893-rgb/buybox-recommender/internal/logging"
	"github.com/denisok6893-rgb/buybox-recommender/internal/matching"
	"github.com/denisok6893-rgb/buybox-recommender/internal/storage"
)

// app is the wired dependency graph shared by every subcommand.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	store       *storage.SQLiteStore
	engine      *matching.Engine
	weekly      *jobs.WeeklyRunner
	convergence *jobs.ConvergenceRunner
}

func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := logging.With().Str("service", "buybox").Logger()

	store, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := importSeedData(ctx, cfg, store); err != nil {
		_ = store.Close()
		return nil, err
	}

	scoring, err := cfg.ScoringConfig()
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.WeightsPath).Msg("using configured weights")
	}
	engine, err := matching.NewEngine(scoring, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	svc, err := convergence.NewService(cfg.Convergence, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		engine:      engine,
		weekly:      jobs.NewWeeklyRunner(engine, store, logger),
		convergence: jobs.NewConvergenceRunner(svc, store, logger),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

func importSeedData(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) error {
	if p := cfg.Database.CandidatesPath; p != "" {
		items, err := storage.LoadCandidatesFromFile(p)
		if err != nil {
			return fmt.Errorf("load candidates: %w", err)
		}
		if err := store.UpsertCandidates(ctx, items); err != nil {
			return err
		}
		logging.Info().Int("count", len(items)).Str("path", p).Msg("candidates imported")
	}
	if p := cfg.Database.MarketsPath; p != "" {
		markets, err := storage.LoadMarketsFromFile(p)
		if err != nil {
			return fmt.Errorf("load markets: %w", err)
		}
		for _, m := range markets {
			if err := store.SaveMarket(ctx, m); err != nil {
				return err
			}
		}
		logging.Info().Int("count", len(markets)).Str("path", p).Msg("markets imported")
	}
	return nil
}
