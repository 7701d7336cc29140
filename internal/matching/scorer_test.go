package matching

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

func TestFitScore_RangePenalties(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		name    string
		market  domain.MarketCriteria
		units   *int
		want    float64
		reasons []string
	}{
		{
			name:   "no criteria and no data",
			market: domain.MarketCriteria{},
			want:   100,
		},
		{
			name:    "at midpoint",
			market:  domain.MarketCriteria{Units: domain.Range{Min: 10, Max: 20}},
			units:   domain.Ptr(15),
			want:    100,
			reasons: []string{"Unit count fits the buy box"},
		},
		{
			name:    "inside range but off center",
			market:  domain.MarketCriteria{Units: domain.Range{Min: 10, Max: 20}},
			units:   domain.Ptr(18),
			want:    96,
			reasons: []string{"Unit count fits the buy box"},
		},
		{
			name:    "penalty capped at factor weight",
			market:  domain.MarketCriteria{Units: domain.Range{Min: 2, Max: 4}},
			units:   domain.Ptr(1000),
			want:    80,
			reasons: []string{"Unit count outside the buy box"},
		},
		{
			name:   "missing value skips the rule",
			market: domain.MarketCriteria{Units: domain.Range{Min: 2, Max: 4}},
			want:   100,
		},
		{
			name:   "open-ended range is not scored",
			market: domain.MarketCriteria{Units: domain.Range{Min: 2}},
			units:  domain.Ptr(1000),
			want:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := s.FitScore(domain.Property{Units: tt.units}, tt.market)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}

func TestFitScore_AllPenaltiesCapped(t *testing.T) {
	s := NewScorer(DefaultConfig())
	market := domain.MarketCriteria{
		Units:          domain.Range{Min: 2, Max: 4},
		AssessedValue:  domain.Range{Min: 100, Max: 200},
		EstimatedValue: domain.Range{Min: 100, Max: 200},
		YearBuilt:      domain.Range{Min: 1, Max: 3},
	}
	p := domain.Property{
		Units:          domain.Ptr(1000),
		AssessedValue:  domain.Ptr(1e9),
		EstimatedValue: domain.Ptr(1e9),
		YearBuilt:      domain.Ptr(2000),
	}

	got, reasons := s.FitScore(p, market)
	assert.InDelta(t, 30, got, 1e-9, "100 - (20+20+15+15)")
	assert.Len(t, reasons, 4)
}

func TestFitScore_Bonuses(t *testing.T) {
	s := NewScorer(DefaultConfig())
	// Units far outside the range costs exactly 20, leaving room for bonuses.
	market := domain.MarketCriteria{Units: domain.Range{Min: 2, Max: 4}}
	outside := "Unit count outside the buy box"

	tests := []struct {
		name    string
		mutate  func(p *domain.Property)
		want    float64
		reasons []string
	}{
		{
			name:    "no bonus data",
			mutate:  func(p *domain.Property) {},
			want:    80,
			reasons: []string{outside},
		},
		{
			name: "equity above threshold with high leverage",
			mutate: func(p *domain.Property) {
				p.EstimatedValue = domain.Ptr(100000.0)
				p.EstimatedEquity = domain.Ptr(20000.0)
			},
			want:    90,
			reasons: []string{outside, ReasonGoodEquity},
		},
		{
			name: "equity with low leverage",
			mutate: func(p *domain.Property) {
				p.EstimatedValue = domain.Ptr(100000.0)
				p.EstimatedEquity = domain.Ptr(50000.0)
			},
			want:    95,
			reasons: []string{outside, ReasonGoodEquity, ReasonLowLeverage},
		},
		{
			name: "strong rent yield",
			mutate: func(p *domain.Property) {
				p.EstimatedValue = domain.Ptr(100000.0)
				p.RentEstimate = domain.Ptr(1000.0)
			},
			want:    90,
			reasons: []string{outside, ReasonStrongRent},
		},
		{
			name: "weak rent yield",
			mutate: func(p *domain.Property) {
				p.EstimatedValue = domain.Ptr(100000.0)
				p.RentEstimate = domain.Ptr(500.0)
			},
			want:    80,
			reasons: []string{outside},
		},
		{
			name: "out-of-state owner counted once",
			mutate: func(p *domain.Property) {
				p.AbsenteeOwner = domain.Ptr(true)
				p.OutOfStateAbsenteeOwner = domain.Ptr(true)
			},
			want:    85,
			reasons: []string{outside, ReasonOutOfStateOwner},
		},
		{
			name:    "in-state absentee owner",
			mutate:  func(p *domain.Property) { p.AbsenteeOwner = domain.Ptr(true) },
			want:    85,
			reasons: []string{outside, ReasonAbsenteeOwner},
		},
		{
			name:    "long ownership",
			mutate:  func(p *domain.Property) { p.YearsOwned = domain.Ptr(16) },
			want:    85,
			reasons: []string{outside, "Long-term owner (more than 15 years)"},
		},
		{
			name:    "ownership at threshold does not count",
			mutate:  func(p *domain.Property) { p.YearsOwned = domain.Ptr(15) },
			want:    80,
			reasons: []string{outside},
		},
		{
			name:    "portfolio owner",
			mutate:  func(p *domain.Property) { p.PortfolioSize = domain.Ptr(6) },
			want:    85,
			reasons: []string{outside, ReasonPortfolioOwner},
		},
		{
			name: "off market",
			mutate: func(p *domain.Property) {
				p.ForSale = domain.Ptr(false)
				p.MLSActive = domain.Ptr(false)
			},
			want:    88,
			reasons: []string{outside, ReasonOffMarket},
		},
		{
			name:    "off market needs both flags",
			mutate:  func(p *domain.Property) { p.ForSale = domain.Ptr(false) },
			want:    80,
			reasons: []string{outside},
		},
		{
			name:    "assumable",
			mutate:  func(p *domain.Property) { p.Assumable = domain.Ptr(true) },
			want:    87,
			reasons: []string{outside, ReasonAssumable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.Property{Units: domain.Ptr(1000)}
			tt.mutate(&p)
			got, reasons := s.FitScore(p, market)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}

func TestFitScore_ClampedToHundred(t *testing.T) {
	s := NewScorer(DefaultConfig())
	got, reasons := s.FitScore(distinctProperty("p1"), domain.MarketCriteria{})
	assert.Equal(t, 100.0, got)
	assert.NotEmpty(t, reasons)
}

func TestDiversityScore(t *testing.T) {
	s := NewScorer(DefaultConfig())

	t.Run("identical pool", func(t *testing.T) {
		pool := []domain.Property{baseProperty("a"), baseProperty("b"), baseProperty("c")}
		assert.Equal(t, 0.0, s.DiversityScore(baseProperty("x"), pool))
	})

	t.Run("differs on every factor", func(t *testing.T) {
		pool := []domain.Property{baseProperty("a"), baseProperty("b"), baseProperty("c")}
		assert.Equal(t, 100.0, s.DiversityScore(distinctProperty("x"), pool))
	})

	t.Run("same id in pool is ignored", func(t *testing.T) {
		x := distinctProperty("x")
		pool := []domain.Property{x, x, baseProperty("a")}
		assert.Equal(t, 100.0, s.DiversityScore(x, pool))
	})

	t.Run("empty pool", func(t *testing.T) {
		assert.Equal(t, 0.0, s.DiversityScore(distinctProperty("x"), nil))
	})

	t.Run("missing fields are never unique", func(t *testing.T) {
		pool := []domain.Property{baseProperty("a"), baseProperty("b")}
		assert.Equal(t, 0.0, s.DiversityScore(domain.Property{ID: "bare"}, pool))
	})

	t.Run("boolean share threshold", func(t *testing.T) {
		// 1 of 4 shares the flag (25%) -> unique; 2 of 4 (50%) -> not unique.
		pool := make([]domain.Property, 4)
		for i := range pool {
			pool[i] = domain.Property{ID: string(rune('a' + i)), Auction: domain.Ptr(false)}
		}
		pool[0].Auction = domain.Ptr(true)
		p := domain.Property{ID: "x", Auction: domain.Ptr(true)}
		assert.True(t, s.isUnique(domain.Auction, p, pool))

		pool[1].Auction = domain.Ptr(true)
		assert.False(t, s.isUnique(domain.Auction, p, pool))
	})
}

func TestScores_BoundsAndDeterminism(t *testing.T) {
	s := NewScorer(DefaultConfig())
	rng := rand.New(rand.NewSource(7))
	market := austinMarket()

	pool := make([]domain.Property, 0, 40)
	for i := 0; i < 40; i++ {
		pool = append(pool, randomProperty(rng, i))
	}

	first := s.Score(market, pool)
	second := s.Score(market, pool)
	require.Len(t, first, len(pool))
	assert.Equal(t, first, second)

	for _, c := range first {
		assert.GreaterOrEqual(t, c.FitScore, 0.0)
		assert.LessOrEqual(t, c.FitScore, 100.0)
		assert.GreaterOrEqual(t, c.DiversityScore, 0.0)
		assert.LessOrEqual(t, c.DiversityScore, 100.0)
		assert.InDelta(t, 0.6*c.FitScore+0.4*c.DiversityScore, c.TotalScore, 1e-9)
	}
}

func TestScore_HighDiversityReason(t *testing.T) {
	s := NewScorer(DefaultConfig())
	scored := s.Score(austinMarket(), []domain.Property{
		baseProperty("a"), baseProperty("b"), baseProperty("c"), distinctProperty("d"),
	})
	require.Len(t, scored, 4)
	assert.Contains(t, scored[3].Reasons, ReasonDistinctCandidate)
	assert.NotContains(t, scored[0].Reasons, ReasonDistinctCandidate)
}

func randomProperty(rng *rand.Rand, i int) domain.Property {
	p := domain.Property{ID: string(rune('A'+i%26)) + string(rune('0'+i/26))}
	if rng.Intn(4) > 0 {
		p.Units = domain.Ptr(1 + rng.Intn(60))
	}
	if rng.Intn(4) > 0 {
		p.YearBuilt = domain.Ptr(1900 + rng.Intn(124))
	}
	if rng.Intn(4) > 0 {
		v := 50000 + rng.Float64()*3000000
		p.EstimatedValue = &v
		p.EstimatedEquity = domain.Ptr(v * rng.Float64())
		p.RentEstimate = domain.Ptr(v * 0.012 * rng.Float64())
	}
	if rng.Intn(2) == 0 {
		p.AssessedValue = domain.Ptr(rng.Float64() * 2000000)
	}
	types := []string{"single_family", "multi_family", "commercial", "land"}
	p.PropertyType = types[rng.Intn(len(types))]
	for _, b := range []**bool{&p.ForSale, &p.MLSActive, &p.Auction, &p.Assumable, &p.AbsenteeOwner, &p.OutOfStateAbsenteeOwner} {
		if rng.Intn(3) > 0 {
			*b = domain.Ptr(rng.Intn(2) == 0)
		}
	}
	if rng.Intn(2) == 0 {
		p.YearsOwned = domain.Ptr(rng.Intn(40))
		p.PortfolioSize = domain.Ptr(1 + rng.Intn(12))
	}
	return p
}

func TestQuartileOf(t *testing.T) {
	bounds := quartileBounds([]float64{4, 1, 3, 2, 5})
	assert.Equal(t, [3]float64{2, 3, 4}, bounds)
	assert.Equal(t, 0, quartileOf(1, bounds))
	assert.Equal(t, 1, quartileOf(2.5, bounds))
	assert.Equal(t, 2, quartileOf(4, bounds))
	assert.Equal(t, 3, quartileOf(5, bounds))
}
