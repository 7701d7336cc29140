package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/metrics"
	"github.com/denisok6893-rgb/buybox-recommender/internal/validation"
)

var (
	ErrInvalidCount  = errors.New("count must not be negative")
	ErrInvalidMarket = errors.New("invalid market criteria")
)

// maxJustificationReasons caps how many reasons are quoted in a justification.
const maxJustificationReasons = 3

// Engine drives the scorer and selector for one market at a time. It keeps no state
// between calls, so markets can be processed concurrently.
type Engine struct {
	cfg      Config
	scorer   *Scorer
	selector *Selector
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Engine)

// WithClock overrides the batch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides batch ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(cfg Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	scorer := NewScorer(cfg)
	e := &Engine{
		cfg:      cfg,
		scorer:   scorer,
		selector: NewSelector(scorer, cfg.NoveltyBoost),
		logger:   logger.With().Str("component", "matching").Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// SelectPropertiesForMarket scores the candidate pool against one buy box and
// returns the diverse top picks. count == 0 means the configured default. The pool
// is trusted to be eligible already; an empty pool yields an empty batch.
func (e *Engine) SelectPropertiesForMarket(market domain.MarketCriteria, candidates []domain.Property, count int) (domain.RecommendationBatch, error) {
	k, err := e.resolveCount(count)
	if err != nil {
		return domain.RecommendationBatch{}, err
	}
	if err := validation.ValidateStruct(market); err != nil {
		return domain.RecommendationBatch{}, fmt.Errorf("%w: %w", ErrInvalidMarket, err)
	}
	return e.selectForMarket(market, candidates, k), nil
}

func (e *Engine) selectForMarket(market domain.MarketCriteria, candidates []domain.Property, k int) domain.RecommendationBatch {
	batch := domain.RecommendationBatch{
		ID:              e.newID(),
		UserID:          market.UserID,
		MarketKey:       market.MarketKey,
		MarketName:      market.DisplayName(),
		GeneratedAt:     e.now().UTC(),
		TotalCandidates: len(candidates),
		Recommendations: []domain.ScoredCandidate{},
	}
	metrics.CandidatePoolSize.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		batch.Status = domain.BatchStatusNoPropertiesFound
		batch.Summary = "No properties found for " + batch.MarketName
		metrics.BatchesGenerated.WithLabelValues(string(batch.Status)).Inc()
		e.logger.Warn().
			Str("market_key", market.MarketKey).
			Msg("no candidates for market")
		return batch
	}

	picks := e.selector.Select(e.scorer.Score(market, candidates), k)
	for i := range picks {
		picks[i].Justification = justify(picks[i], batch.MarketName)
	}

	batch.Recommendations = picks
	batch.Status = domain.BatchStatusOK
	batch.Summary = fmt.Sprintf("%d of %d candidates selected for %s", len(picks), len(candidates), batch.MarketName)

	metrics.BatchesGenerated.WithLabelValues(string(batch.Status)).Inc()
	metrics.RecommendationsReturned.Add(float64(len(picks)))
	e.logger.Debug().
		Str("market_key", market.MarketKey).
		Str("batch_id", batch.ID).
		Int("candidates", len(candidates)).
		Int("selected", len(picks)).
		Msg("market recommendations generated")

	return batch
}

// GenerateWeeklyRecommendations runs SelectPropertiesForMarket for every market,
// reading each market's pool from pools by market key. Markets run concurrently;
// the output keeps the order of markets.
func (e *Engine) GenerateWeeklyRecommendations(ctx context.Context, markets []domain.MarketCriteria, pools map[string][]domain.Property, count int) ([]domain.RecommendationBatch, error) {
	k, err := e.resolveCount(count)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		if err := validation.ValidateStruct(m); err != nil {
			return nil, fmt.Errorf("%w: market %q: %w", ErrInvalidMarket, m.MarketKey, err)
		}
		if _, dup := seen[m.MarketKey]; dup {
			return nil, fmt.Errorf("%w: duplicate market key %q", ErrInvalidMarket, m.MarketKey)
		}
		seen[m.MarketKey] = struct{}{}
	}

	out := make([]domain.RecommendationBatch, len(markets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for i, m := range markets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.selectForMarket(m, pools[m.MarketKey], k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate weekly recommendations: %w", err)
	}

	e.logger.Info().
		Int("markets", len(markets)).
		Int("per_market", k).
		Msg("weekly recommendations generated")

	return out, nil
}

func (e *Engine) resolveCount(count int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	if count == 0 {
		return e.cfg.PropertiesPerMarket, nil
	}
	return count, nil
}

// justify builds a one-line explanation from the scores and the leading reasons.
func justify(c domain.ScoredCandidate, marketName string) string {
	var band string
	switch {
	case c.FitScore >= 80:
		band = "Strong fit"
	case c.FitScore >= 60:
		band = "Good fit"
	default:
		band = "Exploratory pick"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s (fit %.0f, diversity %.0f)", band, marketName, c.FitScore, c.DiversityScore)
	if len(c.Reasons) > 0 {
		n := min(len(c.Reasons), maxJustificationReasons)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.Reasons[:n], "; "))
	}
	return b.String()
}
