package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/matching"
	"github.com/denisok6893-rgb/buybox-recommender/internal/storage"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	st, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema())
	return st
}

func TestWeeklyRunner_Run(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.SaveMarket(ctx, domain.MarketCriteria{
		MarketKey: "mk-austin", UserID: "u1", Name: "Austin", Type: domain.MarketTypeCity, City: "Austin", State: "TX",
		Units: domain.Range{Min: 2, Max: 20},
	}))
	require.NoError(t, st.SaveMarket(ctx, domain.MarketCriteria{
		MarketKey: "mk-empty", UserID: "u1", Type: domain.MarketTypeZip, Zip: "00000",
	}))
	require.NoError(t, st.SaveMarket(ctx, domain.MarketCriteria{
		MarketKey: "mk-other", UserID: "u2", Type: domain.MarketTypeCity, City: "Austin",
	}))

	var pool []domain.Property
	for i := 0; i < 6; i++ {
		pool = append(pool, domain.Property{
			ID: fmt.Sprintf("c%d", i), City: "Austin", State: "TX", Zip: "78701",
			Units:          domain.Ptr(2 + i*3),
			EstimatedValue: domain.Ptr(300_000 + float64(i)*100_000),
		})
	}
	require.NoError(t, st.UpsertCandidates(ctx, pool))

	engine, err := matching.NewEngine(matching.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	runner := NewWeeklyRunner(engine, st, zerolog.Nop())

	batches, err := runner.Run(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, "mk-austin", batches[0].MarketKey)
	assert.Equal(t, domain.BatchStatusOK, batches[0].Status)
	assert.Len(t, batches[0].Recommendations, 3)
	assert.Equal(t, 6, batches[0].TotalCandidates)
	assert.Equal(t, domain.BatchStatusNoPropertiesFound, batches[1].Status)

	latest, err := st.LatestBatch(ctx, "u1", "mk-austin")
	require.NoError(t, err)
	assert.Equal(t, batches[0].ID, latest.ID)

	_, err = st.LatestBatch(ctx, "u2", "mk-other")
	assert.ErrorIs(t, err, storage.ErrNotFound, "other users' markets are untouched")
}

func TestWeeklyRunner_NoMarkets(t *testing.T) {
	engine, err := matching.NewEngine(matching.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	batches, err := NewWeeklyRunner(engine, newStore(t), zerolog.Nop()).Run(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestConvergenceRunner_Run(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		for _, fav := range []bool{true, false} {
			lat, d := 30.27, domain.DecisionFavorite
			if !fav {
				lat, d = 30.50, domain.DecisionNotInterested
			}
			_, err := st.AppendDecision(ctx, domain.UserDecision{
				UserID: "u1", MarketKey: "mk", PropertyID: fmt.Sprintf("p-%v-%d", fav, i), Decision: d,
				Snapshot: domain.Property{
					Latitude:  domain.Ptr(lat + float64(i)*0.001),
					Longitude: domain.Ptr(-97.74),
				},
				DecidedAt: start.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
	}

	cfg := convergence.DefaultConfig()
	cfg.Seed = 3
	svc, err := convergence.NewService(cfg, zerolog.Nop())
	require.NoError(t, err)

	now := start
	runner := NewConvergenceRunner(svc, st, zerolog.Nop()).WithClock(func() time.Time { return now })

	res, err := runner.Run(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseMastery, res.Progress["mk"].Phase)

	states, err := st.ListMarketStates(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, domain.PhaseMastery, states[0].Phase)
	require.NotNil(t, states[0].MasteryAchievedAt)

	now = start.AddDate(0, 0, 28)
	res, err = runner.Run(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseProduction, res.Progress["mk"].Phase)
	assert.True(t, res.Progress["mk"].NotifyProduction)

	states, err = st.ListMarketStates(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseProduction, states[0].Phase)
	assert.True(t, states[0].ProductionNotified)
	require.NotNil(t, states[0].LearnedPreferences)
	assert.Equal(t, 6, states[0].LearnedPreferences.Favorites)

	now = start.AddDate(0, 0, 35)
	res, err = runner.Run(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Progress["mk"].NotifyProduction)
}

func TestConvergenceRunner_EmptyHistory(t *testing.T) {
	svc, err := convergence.NewService(convergence.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	res, err := NewConvergenceRunner(svc, newStore(t), zerolog.Nop()).Run(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, res.Markets)
	assert.Empty(t, res.Updates)
}
