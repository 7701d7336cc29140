package convergence

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/metrics"
)

var (
	ErrMixedUsers      = errors.New("decisions and states must belong to one user")
	ErrInvalidDecision = errors.New("invalid decision")
)

// MarketProgress is the caller-facing report for one market.
type MarketProgress struct {
	MarketKey         string             `json:"market_key"`
	Phase             domain.MarketPhase `json:"phase"`
	PreviousPhase     domain.MarketPhase `json:"previous_phase"`
	Confidence        float64            `json:"confidence"`
	Eligible          bool               `json:"eligible"`
	Signals           Signals            `json:"signals"`
	Decisions         int                `json:"decisions"`
	Favorites         int                `json:"favorites"`
	Rejects           int                `json:"rejects"`
	MasteryAchievedAt *time.Time         `json:"mastery_achieved_at,omitempty"`
	DaysInMastery     int                `json:"days_in_mastery"`
	DaysRemaining     int                `json:"days_remaining"`
	NotifyProduction  bool               `json:"notify_production"`
}

// MarketStateUpdate is one row the market state store must write. State is the full
// replacement record.
type MarketStateUpdate struct {
	State            domain.MarketState `json:"state"`
	Previous         domain.MarketPhase `json:"previous_phase"`
	ProfileComputed  bool               `json:"profile_computed"`
	NotifyProduction bool               `json:"notify_production"`
}

// Result pairs the report with the persistence batch. Updates follow Markets order.
type Result struct {
	UserID   string                    `json:"user_id"`
	Markets  []string                  `json:"markets"`
	Progress map[string]MarketProgress `json:"progress"`
	Updates  []MarketStateUpdate       `json:"updates"`
}

// Service runs the aggregate, analyze, transition and learn pipeline. It performs no
// I/O: callers persist Result.Updates themselves.
type Service struct {
	cfg      Config
	analyzer *Analyzer
	machine  *PhaseMachine
	learner  *Learner
	logger   zerolog.Logger
}

func NewService(cfg Config, logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid convergence config: %w", err)
	}
	return &Service{
		cfg:      cfg,
		analyzer: NewAnalyzer(cfg),
		machine:  NewPhaseMachine(cfg),
		learner:  NewLearner(cfg),
		logger:   logger.With().Str("component", "convergence").Logger(),
	}, nil
}

func (s *Service) Config() Config { return s.cfg }

// UpdateMarketConvergence evaluates every market that has decisions or a stored state.
// decisions must be the user's full history; states are the current market states.
func (s *Service) UpdateMarketConvergence(userID string, decisions []domain.UserDecision, states []domain.MarketState, now time.Time) (Result, error) {
	if userID == "" {
		return Result{}, fmt.Errorf("%w: empty user id", ErrMixedUsers)
	}
	for _, d := range decisions {
		if d.UserID != userID {
			return Result{}, fmt.Errorf("%w: decision %q belongs to %q", ErrMixedUsers, d.ID, d.UserID)
		}
		if d.MarketKey == "" || !d.Decision.Valid() {
			return Result{}, fmt.Errorf("%w: decision %q", ErrInvalidDecision, d.ID)
		}
	}

	current := make(map[string]domain.MarketState, len(states))
	for _, st := range states {
		if st.UserID != userID {
			return Result{}, fmt.Errorf("%w: state for %q belongs to %q", ErrMixedUsers, st.MarketKey, st.UserID)
		}
		current[st.MarketKey] = st
	}

	groups := GroupByMarket(decisions)
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		seen[g.MarketKey] = true
	}
	for _, st := range states {
		if !seen[st.MarketKey] {
			seen[st.MarketKey] = true
			groups = append(groups, MarketDecisions{MarketKey: st.MarketKey})
		}
	}

	res := Result{
		UserID:   userID,
		Markets:  make([]string, 0, len(groups)),
		Progress: make(map[string]MarketProgress, len(groups)),
		Updates:  make([]MarketStateUpdate, 0, len(groups)),
	}
	for _, g := range groups {
		st, ok := current[g.MarketKey]
		if !ok {
			st = domain.NewMarketState(userID, g.MarketKey)
		}
		progress, update := s.evaluate(st, g, now)
		res.Markets = append(res.Markets, g.MarketKey)
		res.Progress[g.MarketKey] = progress
		res.Updates = append(res.Updates, update)
	}

	metrics.ConvergenceRuns.WithLabelValues("success").Inc()
	return res, nil
}

func (s *Service) evaluate(st domain.MarketState, g MarketDecisions, now time.Time) (MarketProgress, MarketStateUpdate) {
	assessment := s.analyzer.Confidence(g.Decisions)
	t := s.machine.Next(st, assessment.Confidence, assessment.Decisions, now)

	next := st
	next.Phase = t.Phase
	next.Confidence = assessment.Confidence
	next.MasteryAchievedAt = t.MasteryAchievedAt
	next.ProductionNotified = t.Notified
	next.UpdatedAt = now.UTC()

	computed := false
	if t.ComputeProfile {
		if prefs := s.learner.Learn(g.Decisions, now); prefs != nil {
			next.LearnedPreferences = prefs
			computed = true
		}
	}

	metrics.MarketConfidence.Observe(assessment.Confidence)
	if t.Changed() {
		metrics.PhaseTransitions.WithLabelValues(string(t.Previous), string(t.Phase)).Inc()
		s.logger.Info().
			Str("user_id", st.UserID).
			Str("market_key", g.MarketKey).
			Str("from", string(t.Previous)).
			Str("to", string(t.Phase)).
			Float64("confidence", assessment.Confidence).
			Msg("market phase changed")
	}

	progress := MarketProgress{
		MarketKey:         g.MarketKey,
		Phase:             t.Phase,
		PreviousPhase:     t.Previous,
		Confidence:        assessment.Confidence,
		Eligible:          assessment.Eligible,
		Signals:           assessment.Signals,
		Decisions:         assessment.Decisions,
		Favorites:         assessment.Favorites,
		Rejects:           assessment.Rejects,
		MasteryAchievedAt: t.MasteryAchievedAt,
		NotifyProduction:  t.NotifyProduction,
	}
	if t.MasteryAchievedAt != nil {
		days := int(math.Floor(now.Sub(*t.MasteryAchievedAt).Hours() / 24))
		progress.DaysInMastery = max(0, days)
		progress.DaysRemaining = max(0, s.cfg.StabilityDays-progress.DaysInMastery)
	}

	return progress, MarketStateUpdate{
		State:            next,
		Previous:         t.Previous,
		ProfileComputed:  computed,
		NotifyProduction: t.NotifyProduction,
	}
}
