package httpapi

import (
	"context"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/jobs"
	"github.com/denisok6893-rgb/buybox-recommender/internal/storage"
)

// Store is the persistence the API reads and writes directly. The job runners reach
// the same store through their own narrower interfaces.
type Store interface {
	jobs.WeeklyStore
	jobs.ConvergenceStore

	UpsertCandidates(ctx context.Context, items []domain.Property) error
	CountCandidates(ctx context.Context) (int, error)
	GetCandidate(ctx context.Context, id string) (domain.Property, error)
	SaveMarket(ctx context.Context, m domain.MarketCriteria) error
	GetMarket(ctx context.Context, userID, key string) (domain.MarketCriteria, error)
	AppendDecision(ctx context.Context, d domain.UserDecision) (domain.UserDecision, error)
	LatestBatch(ctx context.Context, userID, marketKey string) (domain.RecommendationBatch, error)
}

var _ Store = (*storage.SQLiteStore)(nil)
