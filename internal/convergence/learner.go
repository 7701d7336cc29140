package convergence

import (
	"math"
	"time"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/geo"
)

// Learner derives a LearnedPreferences snapshot from a market's favorites.
type Learner struct {
	cfg Config
}

func NewLearner(cfg Config) *Learner {
	return &Learner{cfg: cfg}
}

// Learn returns nil when there are fewer favorites than Config.MinFavorites.
// Rejects in decisions are ignored.
func (l *Learner) Learn(decisions []domain.UserDecision, now time.Time) *domain.LearnedPreferences {
	favs := MarketDecisions{Decisions: decisions}.Favorites()
	if len(favs) < l.cfg.MinFavorites {
		return nil
	}

	prefs := &domain.LearnedPreferences{
		GeneratedAt: now.UTC(),
		Favorites:   len(favs),
		Geographic:  l.geographic(favs),
		Ranges:      make(map[string]domain.RangePreference),
		Booleans:    make(map[string]domain.BooleanPreference),
	}

	for _, c := range domain.LearnedRanges {
		if r, ok := l.valueRange(c, favs); ok {
			prefs.Ranges[c.Name] = r
		}
	}
	for _, c := range domain.LearnedFlags {
		if b, ok := l.leaning(c, favs); ok {
			prefs.Booleans[c.Name] = b
		}
	}
	return prefs
}

func (l *Learner) geographic(favs []domain.UserDecision) *domain.GeoPreference {
	pts := points(favs)
	if len(pts) < l.cfg.MinFavorites {
		return nil
	}
	center, ok := geo.Centroid(pts)
	if !ok {
		return nil
	}
	total := 0.0
	for _, p := range pts {
		total += geo.Between(center, p)
	}
	radius := l.cfg.RadiusMultiplier * total / float64(len(pts))
	radius = math.Max(l.cfg.MinRadiusMiles, math.Min(l.cfg.MaxRadiusMiles, radius))

	return &domain.GeoPreference{
		CenterLatitude:  center.Lat,
		CenterLongitude: center.Lon,
		RadiusMiles:     radius,
		Samples:         len(pts),
	}
}

func (l *Learner) valueRange(c domain.Characteristic, favs []domain.UserDecision) (domain.RangePreference, bool) {
	vs := numbers(c, favs)
	if len(vs) < l.cfg.MinRangeSamples {
		return domain.RangePreference{}, false
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	m := mean(vs)

	pad := (hi - lo) * l.cfg.RangePadding
	if hi == lo {
		pad = math.Abs(m) * l.cfg.FlatRangePadding
	}
	return domain.RangePreference{
		Min:     math.Max(0, lo-pad),
		Max:     hi + pad,
		Mean:    m,
		Samples: len(vs),
	}, true
}

// leaning records a preference only when the favorites skew strongly one way.
// Confidence is the distance of the share from an even split, scaled to [0, 1].
func (l *Learner) leaning(c domain.Characteristic, favs []domain.UserDecision) (domain.BooleanPreference, bool) {
	trues, total := 0, 0
	for _, d := range favs {
		v, ok := c.Flag(d.Snapshot)
		if !ok {
			continue
		}
		total++
		if v {
			trues++
		}
	}
	if total < l.cfg.MinBooleanSamples {
		return domain.BooleanPreference{}, false
	}

	share := float64(trues) / float64(total)
	switch {
	case share > l.cfg.BooleanSkew:
		return domain.BooleanPreference{Preferred: true, Confidence: 2*share - 1, Samples: total}, true
	case share < 1-l.cfg.BooleanSkew:
		return domain.BooleanPreference{Preferred: false, Confidence: 1 - 2*share, Samples: total}, true
	}
	return domain.BooleanPreference{}, false
}
