package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/metrics"
)

// ConvergenceStore is what the convergence job needs from storage.
type ConvergenceStore interface {
	ListDecisions(ctx context.Context, userID, marketKey string) ([]domain.UserDecision, error)
	ListMarketStates(ctx context.Context, userID string) ([]domain.MarketState, error)
	ApplyMarketUpdates(ctx context.Context, updates []convergence.MarketStateUpdate) error
}

// ConvergenceRunner reads one user's snapshot, runs the pure pipeline and writes the
// resulting state updates in one batch.
type ConvergenceRunner struct {
	service *convergence.Service
	store   ConvergenceStore
	logger  zerolog.Logger
	now     func() time.Time
}

func NewConvergenceRunner(service *convergence.Service, store ConvergenceStore, logger zerolog.Logger) *ConvergenceRunner {
	return &ConvergenceRunner{
		service: service,
		store:   store,
		logger:  logger.With().Str("component", "convergence_job").Logger(),
		now:     time.Now,
	}
}

// WithClock replaces the run timestamp source.
func (r *ConvergenceRunner) WithClock(now func() time.Time) *ConvergenceRunner {
	r.now = now
	return r
}

func (r *ConvergenceRunner) Run(ctx context.Context, userID string) (convergence.Result, error) {
	start := time.Now()
	defer func() { metrics.JobDuration.WithLabelValues("convergence").Observe(time.Since(start).Seconds()) }()

	res, err := r.run(ctx, userID)
	if err != nil {
		metrics.ConvergenceRuns.WithLabelValues("error").Inc()
		return convergence.Result{}, err
	}
	return res, nil
}

func (r *ConvergenceRunner) run(ctx context.Context, userID string) (convergence.Result, error) {
	decisions, err := r.store.ListDecisions(ctx, userID, "")
	if err != nil {
		return convergence.Result{}, fmt.Errorf("list decisions: %w", err)
	}
	states, err := r.store.ListMarketStates(ctx, userID)
	if err != nil {
		return convergence.Result{}, fmt.Errorf("list market states: %w", err)
	}

	res, err := r.service.UpdateMarketConvergence(userID, decisions, states, r.now())
	if err != nil {
		return convergence.Result{}, err
	}
	if err := r.store.ApplyMarketUpdates(ctx, res.Updates); err != nil {
		return convergence.Result{}, fmt.Errorf("apply market updates: %w", err)
	}

	for _, u := range res.Updates {
		if u.NotifyProduction {
			r.logger.Info().
				Str("user_id", userID).
				Str("market_key", u.State.MarketKey).
				Msg("market preferences ready for production")
		}
	}
	r.logger.Debug().
		Str("user_id", userID).
		Int("decisions", len(decisions)).
		Int("markets", len(res.Markets)).
		Msg("convergence run complete")

	return res, nil
}
