package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// Reason strings. Each fit rule and the high-diversity outcome map to exactly one.
const (
	ReasonGoodEquity        = "Good equity position"
	ReasonStrongRent        = "Strong rental yield"
	ReasonOutOfStateOwner   = "Out-of-state owner - potentially motivated"
	ReasonAbsenteeOwner     = "Absentee owner - potentially motivated"
	ReasonPortfolioOwner    = "Owner holds a multi-property portfolio"
	ReasonOffMarket         = "Off-market opportunity"
	ReasonAssumable         = "Assumable financing available"
	ReasonLowLeverage       = "Low loan-to-value - flexible seller terms"
	ReasonDistinctCandidate = "Stands out from this week's other candidates"
)

// rangeRule ties one buy-box range to the property characteristic it penalizes.
type rangeRule struct {
	get     func(domain.MarketCriteria) domain.Range
	char    domain.Characteristic
	cap     func(PenaltyCaps) float64
	inside  string
	outside string
}

var rangeRules = []rangeRule{
	{
		get:     func(m domain.MarketCriteria) domain.Range { return m.Units },
		char:    domain.Units,
		cap:     func(p PenaltyCaps) float64 { return p.Units },
		inside:  "Unit count fits the buy box",
		outside: "Unit count outside the buy box",
	},
	{
		get:     func(m domain.MarketCriteria) domain.Range { return m.AssessedValue },
		char:    domain.AssessedValue,
		cap:     func(p PenaltyCaps) float64 { return p.AssessedValue },
		inside:  "Assessed value within target range",
		outside: "Assessed value outside target range",
	},
	{
		get:     func(m domain.MarketCriteria) domain.Range { return m.EstimatedValue },
		char:    domain.EstimatedValue,
		cap:     func(p PenaltyCaps) float64 { return p.EstimatedValue },
		inside:  "Estimated value within target range",
		outside: "Estimated value outside target range",
	},
	{
		get:     func(m domain.MarketCriteria) domain.Range { return m.YearBuilt },
		char:    domain.YearBuilt,
		cap:     func(p PenaltyCaps) float64 { return p.YearBuilt },
		inside:  "Build year within target range",
		outside: "Build year outside target range",
	},
}

// Scorer computes fit and diversity scores. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// FitScore rates how well p matches the buy box, in [0, 100], and returns the
// reason for every rule that fired, in rule order. Missing fields skip their rule.
func (s *Scorer) FitScore(p domain.Property, m domain.MarketCriteria) (float64, []string) {
	score := 100.0
	var reasons []string

	for _, rule := range rangeRules {
		r := rule.get(m)
		limit := rule.cap(s.cfg.Penalties)
		if !r.Bounded() || limit <= 0 {
			continue
		}
		v, ok := rule.char.Number(p)
		if !ok {
			continue
		}
		mid := r.Midpoint()
		if mid <= 0 {
			continue
		}
		deviation := math.Abs(v-mid) / mid
		score -= math.Min(deviation*limit, limit)
		if r.Contains(v) {
			reasons = append(reasons, rule.inside)
		} else {
			reasons = append(reasons, rule.outside)
		}
	}

	b, th := s.cfg.Bonuses, s.cfg.Thresholds

	if eq, ok := p.EquityRatio(); ok && eq > th.MinEquityRatio {
		score += b.Equity
		reasons = append(reasons, ReasonGoodEquity)
	}
	if y, ok := p.AnnualRentYield(); ok && y > th.MinRentYield {
		score += b.RentYield
		reasons = append(reasons, ReasonStrongRent)
	}
	switch {
	case isTrue(p.OutOfStateAbsenteeOwner):
		score += b.AbsenteeOwner
		reasons = append(reasons, ReasonOutOfStateOwner)
	case isTrue(p.AbsenteeOwner):
		score += b.AbsenteeOwner
		reasons = append(reasons, ReasonAbsenteeOwner)
	}
	if p.YearsOwned != nil && *p.YearsOwned > th.MinYearsOwned {
		score += b.LongOwnership
		reasons = append(reasons, fmt.Sprintf("Long-term owner (more than %d years)", th.MinYearsOwned))
	}
	if p.PortfolioSize != nil && *p.PortfolioSize > th.MinPortfolioSize {
		score += b.PortfolioOwner
		reasons = append(reasons, ReasonPortfolioOwner)
	}
	if isFalse(p.ForSale) && isFalse(p.MLSActive) {
		score += b.OffMarket
		reasons = append(reasons, ReasonOffMarket)
	}
	if isTrue(p.Assumable) {
		score += b.Assumable
		reasons = append(reasons, ReasonAssumable)
	}
	if ltv, ok := p.LoanToValue(); ok && ltv < th.MaxLoanToValue {
		score += b.LowLeverage
		reasons = append(reasons, ReasonLowLeverage)
	}

	return clamp(score, 0, 100), reasons
}

// DiversityScore is the share of diversity factors on which p is unusual relative
// to pool, scaled to [0, 100]. Pool entries with p's ID are ignored.
func (s *Scorer) DiversityScore(p domain.Property, pool []domain.Property) float64 {
	others := make([]domain.Property, 0, len(pool))
	for _, o := range pool {
		if p.ID != "" && o.ID == p.ID {
			continue
		}
		others = append(others, o)
	}
	return s.novelty(p, others) * 100
}

// novelty is the fraction of diversity factors on which p is unique against set.
// An empty set yields 0: there is nothing to be distinct from.
func (s *Scorer) novelty(p domain.Property, set []domain.Property) float64 {
	if len(set) == 0 || len(domain.DiversityFactors) == 0 {
		return 0
	}
	unique := 0
	for _, f := range domain.DiversityFactors {
		if s.isUnique(f, p, set) {
			unique++
		}
	}
	return float64(unique) / float64(len(domain.DiversityFactors))
}

func (s *Scorer) isUnique(f domain.Characteristic, p domain.Property, set []domain.Property) bool {
	switch f.Kind {
	case domain.FactorBoolean:
		v, ok := f.Flag(p)
		if !ok {
			return false
		}
		shared, total := 0, 0
		for _, o := range set {
			ov, ok := f.Flag(o)
			if !ok {
				continue
			}
			total++
			if ov == v {
				shared++
			}
		}
		return total > 0 && float64(shared)/float64(total) <= s.cfg.Diversity.MaxSharedFraction

	case domain.FactorText:
		v, ok := f.Text(p)
		if !ok {
			return false
		}
		shared, total := 0, 0
		for _, o := range set {
			ov, ok := f.Text(o)
			if !ok {
				continue
			}
			total++
			if ov == v {
				shared++
			}
		}
		return total > 0 && float64(shared)/float64(total) <= s.cfg.Diversity.MaxSharedFraction

	case domain.FactorNumeric:
		v, ok := f.Number(p)
		if !ok {
			return false
		}
		values := make([]float64, 0, len(set))
		for _, o := range set {
			if ov, ok := f.Number(o); ok {
				values = append(values, ov)
			}
		}
		if len(values) == 0 {
			return false
		}
		bounds := quartileBounds(append(append([]float64(nil), values...), v))
		q := quartileOf(v, bounds)
		inQuartile := 0
		for _, ov := range values {
			if quartileOf(ov, bounds) == q {
				inQuartile++
			}
		}
		return float64(inQuartile)/float64(len(values)) <= s.cfg.Diversity.MaxQuartileFraction
	}
	return false
}

// Score rates every candidate against the market and against the rest of the pool.
func (s *Scorer) Score(m domain.MarketCriteria, candidates []domain.Property) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	others := make([]domain.Property, 0, len(candidates))

	for i, p := range candidates {
		others = others[:0]
		others = append(others, candidates[:i]...)
		others = append(others, candidates[i+1:]...)

		fit, reasons := s.FitScore(p, m)
		div := s.novelty(p, others) * 100
		if len(others) > 0 && div >= s.cfg.Thresholds.HighDiversityScore {
			reasons = append(reasons, ReasonDistinctCandidate)
		}

		out = append(out, domain.ScoredCandidate{
			Property:       p,
			FitScore:       fit,
			DiversityScore: div,
			TotalScore:     s.cfg.FitWeight*fit + s.cfg.DiversityWeight*div,
			Reasons:        reasons,
		})
	}
	return out
}

// quartileBounds returns the 25th, 50th and 75th percentiles using linear
// interpolation between closest ranks.
func quartileBounds(values []float64) [3]float64 {
	sort.Float64s(values)
	return [3]float64{
		quantile(values, 0.25),
		quantile(values, 0.50),
		quantile(values, 0.75),
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

func quartileOf(v float64, bounds [3]float64) int {
	for i, b := range bounds {
		if v <= b {
			return i
		}
	}
	return 3
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
