package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// SaveMarket inserts or replaces a market's criteria. Markets are keyed by owner and
// market key, so two users may use the same key.
func (s *SQLiteStore) SaveMarket(ctx context.Context, m domain.MarketCriteria) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal market %s: %w", m.MarketKey, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO markets (user_id, market_key, criteria_json) VALUES (?, ?, ?)
ON CONFLICT(user_id, market_key) DO UPDATE SET criteria_json = excluded.criteria_json
`, m.UserID, m.MarketKey, string(data))
	return err
}

func (s *SQLiteStore) GetMarket(ctx context.Context, userID, key string) (domain.MarketCriteria, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT criteria_json FROM markets WHERE user_id = ? AND market_key = ?`, userID, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketCriteria{}, fmt.Errorf("market %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return domain.MarketCriteria{}, err
	}
	var m domain.MarketCriteria
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return domain.MarketCriteria{}, fmt.Errorf("decode market %s: %w", key, err)
	}
	return m, nil
}

// ListMarkets returns every stored market, or only userID's when it is non-empty.
func (s *SQLiteStore) ListMarkets(ctx context.Context, userID string) ([]domain.MarketCriteria, error) {
	q := `SELECT criteria_json FROM markets`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY user_id, market_key`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MarketCriteria{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var m domain.MarketCriteria
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("decode market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
