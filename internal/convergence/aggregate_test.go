package convergence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

func TestGroupByMarket(t *testing.T) {
	ds := []domain.UserDecision{
		decision("1", "mk-b", true, domain.Property{}),
		decision("2", "mk-a", false, domain.Property{}),
		decision("3", "mk-b", false, domain.Property{}),
		decision("4", "mk-a", true, domain.Property{}),
		decision("5", "mk-b", true, domain.Property{}),
	}

	groups := GroupByMarket(ds)
	require.Len(t, groups, 2)

	assert.Equal(t, "mk-b", groups[0].MarketKey)
	assert.Len(t, groups[0].Decisions, 3)
	assert.Equal(t, "1", groups[0].Decisions[0].ID)
	assert.Equal(t, "5", groups[0].Decisions[2].ID)
	assert.Len(t, groups[0].Favorites(), 2)
	assert.Len(t, groups[0].Rejects(), 1)

	assert.Equal(t, "mk-a", groups[1].MarketKey)
	assert.Len(t, groups[1].Decisions, 2)
}

func TestGroupByMarket_Empty(t *testing.T) {
	assert.Empty(t, GroupByMarket(nil))
}
