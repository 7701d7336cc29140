package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// AppendDecision writes a new decision. Decisions are never updated; an empty ID or
// timestamp is filled in.
func (s *SQLiteStore) AppendDecision(ctx context.Context, d domain.UserDecision) (domain.UserDecision, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}
	d.DecidedAt = d.DecidedAt.UTC()
	if d.Snapshot.ID == "" {
		d.Snapshot.ID = d.PropertyID
	}

	snap, err := json.Marshal(d.Snapshot)
	if err != nil {
		return domain.UserDecision{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO decisions (id, user_id, market_key, property_id, decision, snapshot_json, decided_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, d.ID, d.UserID, d.MarketKey, d.PropertyID, string(d.Decision), string(snap), d.DecidedAt)
	if err != nil {
		return domain.UserDecision{}, fmt.Errorf("insert decision: %w", err)
	}
	return d, nil
}

// ListDecisions returns a user's decisions oldest first, limited to marketKey when set.
func (s *SQLiteStore) ListDecisions(ctx context.Context, userID, marketKey string) ([]domain.UserDecision, error) {
	q := `
SELECT id, user_id, market_key, property_id, decision, snapshot_json, decided_at
FROM decisions WHERE user_id = ?`
	args := []any{userID}
	if marketKey != "" {
		q += ` AND market_key = ?`
		args = append(args, marketKey)
	}
	q += ` ORDER BY decided_at, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.UserDecision{}
	for rows.Next() {
		var d domain.UserDecision
		var decision, snap string
		if err := rows.Scan(&d.ID, &d.UserID, &d.MarketKey, &d.PropertyID, &decision, &snap, &d.DecidedAt); err != nil {
			return nil, err
		}
		d.Decision = domain.Decision(decision)
		if err := json.Unmarshal([]byte(snap), &d.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot of %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
