package convergence

import (
	"fmt"
	"time"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

const testUser = "user-1"

var t0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func decision(id, market string, favorite bool, p domain.Property) domain.UserDecision {
	d := domain.DecisionNotInterested
	if favorite {
		d = domain.DecisionFavorite
	}
	p.ID = "prop-" + id
	return domain.UserDecision{
		ID:         id,
		UserID:     testUser,
		MarketKey:  market,
		PropertyID: p.ID,
		Decision:   d,
		Snapshot:   p,
		DecidedAt:  t0,
	}
}

func located(lat, lon float64) domain.Property {
	return domain.Property{Latitude: domain.Ptr(lat), Longitude: domain.Ptr(lon)}
}

// clusteredHistory returns n favorites packed within a few hundred yards of downtown
// Austin and n rejects about 16 miles north.
func clusteredHistory(market string, n int) []domain.UserDecision {
	var out []domain.UserDecision
	for i := 0; i < n; i++ {
		out = append(out, decision(fmt.Sprintf("f%d", i), market, true, located(30.270+float64(i)*0.001, -97.740)))
		out = append(out, decision(fmt.Sprintf("r%d", i), market, false, located(30.500+float64(i)*0.001, -97.740)))
	}
	return out
}

func seededConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 7
	return cfg
}
