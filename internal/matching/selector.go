package matching

import (
	"sort"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// Selector picks a small, mutually diverse subset of scored candidates.
//
// It is a greedy Maximal Marginal Relevance variant: the top-scoring candidate seeds
// the selection, then each round adds the remaining candidate that maximizes
//
//	totalScore + boost * novelty(candidate, selected)
//
// where novelty is the fraction of diversity factors on which the candidate is
// unique against the current selection. Exact diverse-subset selection is NP-hard;
// the greedy pass is the intended algorithm.
type Selector struct {
	scorer *Scorer
	boost  float64
}

func NewSelector(scorer *Scorer, boost float64) *Selector {
	if boost < 0 {
		boost = 0
	}
	return &Selector{scorer: scorer, boost: boost}
}

// Select returns min(k, len(scored)) candidates without duplicates. The first
// element always carries the highest total score. k <= 0 returns nothing.
func (s *Selector) Select(scored []domain.ScoredCandidate, k int) []domain.ScoredCandidate {
	if k <= 0 || len(scored) == 0 {
		return []domain.ScoredCandidate{}
	}

	ranked := make([]domain.ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TotalScore > ranked[j].TotalScore })

	if len(ranked) <= k {
		return ranked
	}

	selected := make([]domain.ScoredCandidate, 0, k)
	chosen := make([]domain.Property, 0, k)
	selected = append(selected, ranked[0])
	chosen = append(chosen, ranked[0].Property)
	remaining := ranked[1:]

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestValue := 0.0
		for i, c := range remaining {
			v := c.TotalScore + s.boost*s.scorer.novelty(c.Property, chosen)
			if i == 0 || v > bestValue {
				bestIdx, bestValue = i, v
			}
		}

		pick := remaining[bestIdx]
		selected = append(selected, pick)
		chosen = append(chosen, pick.Property)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}
