package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

func (s *SQLiteStore) ListMarketStates(ctx context.Context, userID string) ([]domain.MarketState, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, market_key, phase, confidence, mastery_achieved_at, learned_json, production_notified, updated_at
FROM market_states WHERE user_id = ? ORDER BY market_key
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MarketState{}
	for rows.Next() {
		var st domain.MarketState
		var phase string
		var mastery sql.NullTime
		var learned sql.NullString
		if err := rows.Scan(&st.UserID, &st.MarketKey, &phase, &st.Confidence, &mastery, &learned, &st.ProductionNotified, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.Phase = domain.MarketPhase(phase)
		if mastery.Valid {
			t := mastery.Time
			st.MasteryAchievedAt = &t
		}
		if learned.Valid && learned.String != "" {
			var prefs domain.LearnedPreferences
			if err := json.Unmarshal([]byte(learned.String), &prefs); err != nil {
				return nil, fmt.Errorf("decode learned preferences for %s: %w", st.MarketKey, err)
			}
			st.LearnedPreferences = &prefs
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ApplyMarketUpdates writes a convergence run's state changes in one transaction.
func (s *SQLiteStore) ApplyMarketUpdates(ctx context.Context, updates []convergence.MarketStateUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO market_states
(user_id, market_key, phase, confidence, mastery_achieved_at, learned_json, production_notified, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, market_key) DO UPDATE SET
  phase = excluded.phase,
  confidence = excluded.confidence,
  mastery_achieved_at = excluded.mastery_achieved_at,
  learned_json = excluded.learned_json,
  production_notified = excluded.production_notified,
  updated_at = excluded.updated_at
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		st := u.State
		var mastery sql.NullTime
		if st.MasteryAchievedAt != nil {
			mastery = sql.NullTime{Time: st.MasteryAchievedAt.UTC(), Valid: true}
		}
		var learned sql.NullString
		if st.LearnedPreferences != nil {
			b, err := json.Marshal(st.LearnedPreferences)
			if err != nil {
				return fmt.Errorf("marshal learned preferences for %s: %w", st.MarketKey, err)
			}
			learned = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			st.UserID, st.MarketKey, string(st.Phase), st.Confidence,
			mastery, learned, st.ProductionNotified, st.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("write state %s/%s: %w", st.UserID, st.MarketKey, err)
		}
	}
	return tx.Commit()
}
