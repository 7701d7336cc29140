package convergence

import (
	"time"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// Transition is the phase machine's decision for one market on one run.
type Transition struct {
	Previous          domain.MarketPhase
	Phase             domain.MarketPhase
	MasteryAchievedAt *time.Time
	// ComputeProfile asks the caller to derive and persist a learned profile.
	ComputeProfile bool
	// NotifyProduction is set exactly once per mastery cycle, on promotion.
	NotifyProduction bool
	// Notified is the value ProductionNotified should hold after this run.
	Notified bool
}

func (t Transition) Changed() bool { return t.Previous != t.Phase }

// PhaseMachine moves a market between discovery, learning, mastery and production.
// The mastery clock is anchored to the first run that met the mastery bar and is
// cleared by any run below it.
type PhaseMachine struct {
	cfg Config
}

func NewPhaseMachine(cfg Config) *PhaseMachine {
	return &PhaseMachine{cfg: cfg}
}

func (m *PhaseMachine) Next(state domain.MarketState, confidence float64, decisions int, now time.Time) Transition {
	t := Transition{
		Previous: state.Phase,
		Notified: state.ProductionNotified,
	}
	if t.Previous == "" {
		t.Previous = domain.PhaseDiscovery
	}

	switch {
	case confidence >= m.cfg.MasteryConfidence && decisions >= m.cfg.MasteryDecisions:
		if state.MasteryAchievedAt == nil {
			at := now.UTC()
			t.Phase = domain.PhaseMastery
			t.MasteryAchievedAt = &at
			return t
		}
		at := *state.MasteryAchievedAt
		t.MasteryAchievedAt = &at
		if now.Sub(at) < m.cfg.StabilityWindow() {
			t.Phase = domain.PhaseMastery
			return t
		}
		t.Phase = domain.PhaseProduction
		t.ComputeProfile = state.Phase != domain.PhaseProduction || state.LearnedPreferences == nil
		if !state.ProductionNotified {
			t.NotifyProduction = true
			t.Notified = true
		}
		return t

	case confidence >= m.cfg.LearningConfidence && decisions >= m.cfg.LearningDecisions:
		t.Phase = domain.PhaseLearning
	default:
		t.Phase = domain.PhaseDiscovery
	}

	// Falling below the mastery bar restarts the cycle.
	t.MasteryAchievedAt = nil
	t.Notified = false
	return t
}
