package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

func (s *SQLiteStore) CountCandidates(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n)
	return n, err
}

// UpsertCandidates inserts or refreshes candidates by id in one transaction.
func (s *SQLiteStore) UpsertCandidates(ctx context.Context, items []domain.Property) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO candidates
(id, city, state, zip, units, year_built, assessed_value, estimated_value, data_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  city = excluded.city,
  state = excluded.state,
  zip = excluded.zip,
  units = excluded.units,
  year_built = excluded.year_built,
  assessed_value = excluded.assessed_value,
  estimated_value = excluded.estimated_value,
  data_json = excluded.data_json
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range items {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: address %q", ErrMissingCandidateID, p.Address)
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal candidate %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.City, p.State, p.Zip,
			p.Units, p.YearBuilt, p.AssessedValue, p.EstimatedValue,
			string(data),
		); err != nil {
			return fmt.Errorf("upsert candidate %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (domain.Property, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data_json FROM candidates WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Property{}, err
	}
	var p domain.Property
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return domain.Property{}, fmt.Errorf("decode candidate %s: %w", id, err)
	}
	return p, nil
}

// ListCandidates returns the eligible pool for a market: same city (and state when
// set) or same zip, and inside every bounded numeric range. A candidate missing a
// ranged field is kept; the scorer skips that rule for it.
func (s *SQLiteStore) ListCandidates(ctx context.Context, m domain.MarketCriteria) ([]domain.Property, error) {
	where := make([]string, 0, 8)
	args := make([]any, 0, 12)

	switch m.Type {
	case domain.MarketTypeZip:
		where = append(where, "zip = ?")
		args = append(args, strings.TrimSpace(m.Zip))
	default:
		where = append(where, "LOWER(city) = LOWER(?)")
		args = append(args, strings.TrimSpace(m.City))
	}
	if st := strings.TrimSpace(m.State); st != "" {
		where = append(where, "UPPER(state) = UPPER(?)")
		args = append(args, st)
	}

	for _, f := range []struct {
		column string
		r      domain.Range
	}{
		{"units", m.Units},
		{"assessed_value", m.AssessedValue},
		{"estimated_value", m.EstimatedValue},
		{"year_built", m.YearBuilt},
	} {
		if f.r.Min > 0 {
			where = append(where, fmt.Sprintf("(%s IS NULL OR %s >= ?)", f.column, f.column))
			args = append(args, f.r.Min)
		}
		if f.r.Max > 0 {
			where = append(where, fmt.Sprintf("(%s IS NULL OR %s <= ?)", f.column, f.column))
			args = append(args, f.r.Max)
		}
	}

	q := "SELECT data_json FROM candidates WHERE " + strings.Join(where, " AND ") + " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Property{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p domain.Property
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
