package convergence

import "github.com/denisok6893-rgb/buybox-recommender/internal/domain"

// MarketDecisions is one market's slice of a user's decision history.
type MarketDecisions struct {
	MarketKey string
	Decisions []domain.UserDecision
}

// Favorites and Rejects split the history by decision class.
func (m MarketDecisions) Favorites() []domain.UserDecision {
	return filter(m.Decisions, true)
}

func (m MarketDecisions) Rejects() []domain.UserDecision {
	return filter(m.Decisions, false)
}

func filter(ds []domain.UserDecision, favorite bool) []domain.UserDecision {
	out := make([]domain.UserDecision, 0, len(ds))
	for _, d := range ds {
		if d.IsFavorite() == favorite {
			out = append(out, d)
		}
	}
	return out
}

// GroupByMarket partitions decisions by market key. Markets come back in order of
// first appearance and each group keeps the input order.
func GroupByMarket(decisions []domain.UserDecision) []MarketDecisions {
	index := make(map[string]int)
	var out []MarketDecisions
	for _, d := range decisions {
		i, ok := index[d.MarketKey]
		if !ok {
			i = len(out)
			index[d.MarketKey] = i
			out = append(out, MarketDecisions{MarketKey: d.MarketKey})
		}
		out[i].Decisions = append(out[i].Decisions, d)
	}
	return out
}
