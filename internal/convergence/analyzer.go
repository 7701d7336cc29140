package convergence

import (
	"math"
	"math/rand"
	"time"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
	"github.com/denisok6893-rgb/buybox-recommender/internal/geo"
)

// separationKind selects how a characteristic's group separation is scored.
type separationKind int

const (
	separationValue separationKind = iota
	separationUnits
	separationDecades
)

type separationRule struct {
	char domain.Characteristic
	kind separationKind
}

var separationRules = []separationRule{
	{char: domain.Units, kind: separationUnits},
	{char: domain.YearBuilt, kind: separationDecades},
	{char: domain.AssessedValue, kind: separationValue},
	{char: domain.EstimatedValue, kind: separationValue},
}

// Signals records every signal that had enough data to compute. Absent signals are nil
// or missing from Characteristics.
type Signals struct {
	Geographic      *float64           `json:"geographic,omitempty"`
	Characteristics map[string]float64 `json:"characteristics,omitempty"`
	Prediction      *float64           `json:"prediction,omitempty"`
}

func (s Signals) values() []float64 {
	var out []float64
	if s.Geographic != nil {
		out = append(out, *s.Geographic)
	}
	for _, rule := range separationRules {
		if v, ok := s.Characteristics[rule.char.Name]; ok {
			out = append(out, v)
		}
	}
	if s.Prediction != nil {
		out = append(out, *s.Prediction)
	}
	return out
}

// Assessment is the analyzer's verdict on one market's decision history.
type Assessment struct {
	Confidence float64 `json:"confidence"`
	// Eligible is false when the history was too sparse to compute any signal.
	Eligible  bool    `json:"eligible"`
	Signals   Signals `json:"signals"`
	Decisions int     `json:"decisions"`
	Favorites int     `json:"favorites"`
	Rejects   int     `json:"rejects"`
}

// Analyzer estimates how learnable a user's preference in one market is.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Confidence scores one market's decisions in [0, 1]. Sparse histories get the sparse
// baseline; eligible histories where no signal computes get the no-signal baseline.
// The held-out split is random unless Config.Seed is set.
func (a *Analyzer) Confidence(decisions []domain.UserDecision) Assessment {
	md := MarketDecisions{Decisions: decisions}
	favs, rejs := md.Favorites(), md.Rejects()

	out := Assessment{
		Confidence: a.cfg.SparseBaseline,
		Decisions:  len(decisions),
		Favorites:  len(favs),
		Rejects:    len(rejs),
	}
	if len(decisions) < a.cfg.MinDecisions || len(favs) < a.cfg.MinPerClass || len(rejs) < a.cfg.MinPerClass {
		return out
	}
	out.Eligible = true

	if v, ok := a.geographicSignal(favs, rejs); ok {
		out.Signals.Geographic = &v
	}
	for _, rule := range separationRules {
		if v, ok := a.characteristicSignal(rule, favs, rejs); ok {
			if out.Signals.Characteristics == nil {
				out.Signals.Characteristics = make(map[string]float64)
			}
			out.Signals.Characteristics[rule.char.Name] = v
		}
	}
	if v, ok := a.predictionSignal(decisions, a.newRand()); ok {
		out.Signals.Prediction = &v
	}

	values := out.Signals.values()
	if len(values) == 0 {
		out.Confidence = a.cfg.NoSignalBaseline
		return out
	}
	out.Confidence = clamp01(mean(values))
	return out
}

func (a *Analyzer) newRand() *rand.Rand {
	seed := a.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // holdout split, not security
}

func (a *Analyzer) geographicSignal(favs, rejs []domain.UserDecision) (float64, bool) {
	favPts, rejPts := points(favs), points(rejs)
	if len(favPts) < a.cfg.MinGeoPerClass || len(rejPts) < a.cfg.MinGeoPerClass {
		return 0, false
	}

	favClusters := geo.Cluster(favPts, a.cfg.ClusterRadiusMiles)
	rejClusters := geo.Cluster(rejPts, a.cfg.ClusterRadiusMiles)
	strength := (a.clusterStrength(favClusters) + a.clusterStrength(rejClusters)) / 2

	minDist := math.Inf(1)
	for _, f := range clusterMembers(favClusters) {
		for _, r := range clusterMembers(rejClusters) {
			minDist = math.Min(minDist, geo.Between(f, r))
		}
	}
	separation := math.Min(1, minDist/a.cfg.SeparationSaturationMiles)

	return (strength + separation) / 2, true
}

// clusterStrength rewards tight groups: average cluster size over the saturation size.
func (a *Analyzer) clusterStrength(clusters [][]geo.Point) float64 {
	if len(clusters) == 0 {
		return 0
	}
	n := 0
	for _, c := range clusters {
		n += len(c)
	}
	avg := float64(n) / float64(len(clusters))
	return math.Min(1, avg/a.cfg.ClusterSizeSaturation)
}

// clusterMembers returns points that share a cluster with at least one other point,
// or every point when nothing clustered.
func clusterMembers(clusters [][]geo.Point) []geo.Point {
	var members, all []geo.Point
	for _, c := range clusters {
		all = append(all, c...)
		if len(c) > 1 {
			members = append(members, c...)
		}
	}
	if len(members) == 0 {
		return all
	}
	return members
}

func (a *Analyzer) characteristicSignal(rule separationRule, favs, rejs []domain.UserDecision) (float64, bool) {
	fv, rv := numbers(rule.char, favs), numbers(rule.char, rejs)
	if len(fv) < a.cfg.MinCharacteristicSamples || len(rv) < a.cfg.MinCharacteristicSamples {
		return 0, false
	}
	fMean, rMean := mean(fv), mean(rv)

	switch rule.kind {
	case separationDecades:
		decades := math.Floor(math.Abs(fMean-rMean) / 10)
		capped := math.Min(decades, float64(a.cfg.MaxDecades))
		return capped / float64(a.cfg.MaxDecades), true

	case separationUnits:
		return math.Min(1, relativeSeparation(fMean, rMean)*2), true

	default:
		sep := math.Min(1, relativeSeparation(fMean, rMean)/a.cfg.ValueSeparationSaturation)
		cv := (variation(fv, fMean) + variation(rv, rMean)) / 2
		consistency := 1 - math.Min(1, cv)
		return 0.5*sep + 0.5*consistency, true
	}
}

// predictionSignal holds out a random share of geocoded decisions and predicts each
// one by the nearer of the training favorite and reject centroids.
func (a *Analyzer) predictionSignal(decisions []domain.UserDecision, rng *rand.Rand) (float64, bool) {
	type sample struct {
		pt       geo.Point
		favorite bool
	}
	var samples []sample
	favs, rejs := 0, 0
	for _, d := range decisions {
		lat, lon, ok := d.Snapshot.Coordinates()
		if !ok {
			continue
		}
		samples = append(samples, sample{pt: geo.Point{Lat: lat, Lon: lon}, favorite: d.IsFavorite()})
		if d.IsFavorite() {
			favs++
		} else {
			rejs++
		}
	}
	if favs < a.cfg.MinGeoPerClass || rejs < a.cfg.MinGeoPerClass {
		return 0, false
	}

	rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
	testSize := max(1, int(math.Floor(float64(len(samples))*a.cfg.HoldoutFraction)))
	test, train := samples[:testSize], samples[testSize:]

	var favTrain, rejTrain []geo.Point
	for _, s := range train {
		if s.favorite {
			favTrain = append(favTrain, s.pt)
		} else {
			rejTrain = append(rejTrain, s.pt)
		}
	}
	favCenter, okF := geo.Centroid(favTrain)
	rejCenter, okR := geo.Centroid(rejTrain)
	if !okF || !okR {
		return 0, false
	}

	correct := 0
	for _, s := range test {
		predicted := geo.Between(s.pt, favCenter) < geo.Between(s.pt, rejCenter)
		if predicted == s.favorite {
			correct++
		}
	}
	return float64(correct) / float64(len(test)), true
}

func points(ds []domain.UserDecision) []geo.Point {
	out := make([]geo.Point, 0, len(ds))
	for _, d := range ds {
		if lat, lon, ok := d.Snapshot.Coordinates(); ok {
			out = append(out, geo.Point{Lat: lat, Lon: lon})
		}
	}
	return out
}

func numbers(c domain.Characteristic, ds []domain.UserDecision) []float64 {
	out := make([]float64, 0, len(ds))
	for _, d := range ds {
		if v, ok := c.Number(d.Snapshot); ok {
			out = append(out, v)
		}
	}
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddev(vs []float64, m float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sq := 0.0
	for _, v := range vs {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(vs)))
}

// variation is the coefficient of variation; a non-positive mean counts as maximally spread.
func variation(vs []float64, m float64) float64 {
	if m <= 0 {
		return 1
	}
	return stddev(vs, m) / m
}

func relativeSeparation(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
