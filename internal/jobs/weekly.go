// Package jobs runs the weekly recommendation and convergence pipelines against
// their storage collaborators.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/matching"
	"github.com/denisok6893-rgb/buybox-recommender/internal/metrics"
)

// WeeklyStore is what the weekly job needs from storage.
type WeeklyStore interface {
	ListMarkets(ctx context.Context, userID string) ([]domain.MarketCriteria, error)
	ListCandidates(ctx context.Context, m domain.MarketCriteria) ([]domain.Property, error)
	SaveBatches(ctx context.Context, batches []domain.RecommendationBatch) error
}

// WeeklyRunner fetches every market's pool, generates batches and archives them.
type WeeklyRunner struct {
	engine *matching.Engine
	store  WeeklyStore
	logger zerolog.Logger
}

func NewWeeklyRunner(engine *matching.Engine, store WeeklyStore, logger zerolog.Logger) *WeeklyRunner {
	return &WeeklyRunner{
		engine: engine,
		store:  store,
		logger: logger.With().Str("component", "weekly").Logger(),
	}
}

// Run processes the markets of userID, or every stored market when userID is empty.
// count == 0 uses the engine's default batch size.
func (r *WeeklyRunner) Run(ctx context.Context, userID string, count int) ([]domain.RecommendationBatch, error) {
	start := time.Now()
	defer func() { metrics.JobDuration.WithLabelValues("weekly").Observe(time.Since(start).Seconds()) }()

	markets, err := r.store.ListMarkets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	if len(markets) == 0 {
		r.logger.Info().Str("user_id", userID).Msg("no markets to process")
		return []domain.RecommendationBatch{}, nil
	}

	pools := make([][]domain.Property, len(markets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.Config().MaxConcurrency)
	for i, m := range markets {
		g.Go(func() error {
			pool, err := r.store.ListCandidates(gctx, m)
			if err != nil {
				return fmt.Errorf("list candidates for %s: %w", m.MarketKey, err)
			}
			pools[i] = pool
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKey := make(map[string][]domain.Property, len(markets))
	for i, m := range markets {
		byKey[m.MarketKey] = pools[i]
	}

	batches, err := r.engine.GenerateWeeklyRecommendations(ctx, markets, byKey, count)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveBatches(ctx, batches); err != nil {
		return nil, fmt.Errorf("save batches: %w", err)
	}

	empty := 0
	for _, b := range batches {
		if b.Status == domain.BatchStatusNoPropertiesFound {
			empty++
		}
	}
	r.logger.Info().
		Str("user_id", userID).
		Int("markets", len(batches)).
		Int("empty_markets", empty).
		Dur("elapsed", time.Since(start)).
		Msg("weekly run complete")

	return batches, nil
}
