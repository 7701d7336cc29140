package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// SaveBatches archives generated batches in one transaction.
func (s *SQLiteStore) SaveBatches(ctx context.Context, batches []domain.RecommendationBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO recommendation_batches (id, user_id, market_key, status, generated_at, batch_json)
VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range batches {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal batch %s: %w", b.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.MarketKey, string(b.Status), b.GeneratedAt.UTC(), string(data)); err != nil {
			return fmt.Errorf("insert batch %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// LatestBatch returns the most recently generated batch for one user's market.
func (s *SQLiteStore) LatestBatch(ctx context.Context, userID, marketKey string) (domain.RecommendationBatch, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
SELECT batch_json FROM recommendation_batches
WHERE user_id = ? AND market_key = ? ORDER BY generated_at DESC, id DESC LIMIT 1
`, userID, marketKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RecommendationBatch{}, fmt.Errorf("batch for %s: %w", marketKey, ErrNotFound)
	}
	if err != nil {
		return domain.RecommendationBatch{}, err
	}
	var b domain.RecommendationBatch
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return domain.RecommendationBatch{}, fmt.Errorf("decode batch: %w", err)
	}
	return b, nil
}
