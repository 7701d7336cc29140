package convergence

import (
	"fmt"
	"time"
)

// Config holds the thresholds of the analyzer, the learner and the phase machine.
type Config struct {
	// Eligibility gate for computing any signal.
	MinDecisions     int     `json:"min_decisions" koanf:"min_decisions"`
	MinPerClass      int     `json:"min_per_class" koanf:"min_per_class"`
	SparseBaseline   float64 `json:"sparse_baseline" koanf:"sparse_baseline"`
	NoSignalBaseline float64 `json:"no_signal_baseline" koanf:"no_signal_baseline"`

	// Geographic signal.
	MinGeoPerClass            int     `json:"min_geo_per_class" koanf:"min_geo_per_class"`
	ClusterRadiusMiles        float64 `json:"cluster_radius_miles" koanf:"cluster_radius_miles"`
	ClusterSizeSaturation     float64 `json:"cluster_size_saturation" koanf:"cluster_size_saturation"`
	SeparationSaturationMiles float64 `json:"separation_saturation_miles" koanf:"separation_saturation_miles"`

	// Characteristic-separation signal.
	MinCharacteristicSamples  int     `json:"min_characteristic_samples" koanf:"min_characteristic_samples"`
	ValueSeparationSaturation float64 `json:"value_separation_saturation" koanf:"value_separation_saturation"`
	MaxDecades                int     `json:"max_decades" koanf:"max_decades"`

	// Held-out prediction signal. Seed 0 seeds from the clock.
	HoldoutFraction float64 `json:"holdout_fraction" koanf:"holdout_fraction"`
	Seed            int64   `json:"seed" koanf:"seed"`

	// Phase machine.
	MasteryConfidence  float64 `json:"mastery_confidence" koanf:"mastery_confidence"`
	MasteryDecisions   int     `json:"mastery_decisions" koanf:"mastery_decisions"`
	LearningConfidence float64 `json:"learning_confidence" koanf:"learning_confidence"`
	LearningDecisions  int     `json:"learning_decisions" koanf:"learning_decisions"`
	StabilityDays      int     `json:"stability_days" koanf:"stability_days"`

	// Preference learner.
	MinFavorites      int     `json:"min_favorites" koanf:"min_favorites"`
	RadiusMultiplier  float64 `json:"radius_multiplier" koanf:"radius_multiplier"`
	MinRadiusMiles    float64 `json:"min_radius_miles" koanf:"min_radius_miles"`
	MaxRadiusMiles    float64 `json:"max_radius_miles" koanf:"max_radius_miles"`
	MinRangeSamples   int     `json:"min_range_samples" koanf:"min_range_samples"`
	RangePadding      float64 `json:"range_padding" koanf:"range_padding"`
	FlatRangePadding  float64 `json:"flat_range_padding" koanf:"flat_range_padding"`
	MinBooleanSamples int     `json:"min_boolean_samples" koanf:"min_boolean_samples"`
	BooleanSkew       float64 `json:"boolean_skew" koanf:"boolean_skew"`
}

func DefaultConfig() Config {
	return Config{
		MinDecisions:     5,
		MinPerClass:      2,
		SparseBaseline:   0.15,
		NoSignalBaseline: 0.2,

		MinGeoPerClass:            2,
		ClusterRadiusMiles:        2,
		ClusterSizeSaturation:     3,
		SeparationSaturationMiles: 5,

		MinCharacteristicSamples:  2,
		ValueSeparationSaturation: 0.3,
		MaxDecades:                4,

		HoldoutFraction: 0.2,

		MasteryConfidence:  0.8,
		MasteryDecisions:   10,
		LearningConfidence: 0.6,
		LearningDecisions:  8,
		StabilityDays:      28,

		MinFavorites:      2,
		RadiusMultiplier:  1.2,
		MinRadiusMiles:    0.1,
		MaxRadiusMiles:    10,
		MinRangeSamples:   2,
		RangePadding:      0.2,
		FlatRangePadding:  0.1,
		MinBooleanSamples: 3,
		BooleanSkew:       0.7,
	}
}

// StabilityWindow is how long a market must hold mastery before production.
func (c Config) StabilityWindow() time.Duration {
	return time.Duration(c.StabilityDays) * 24 * time.Hour
}

func (c Config) Validate() error {
	if c.MinDecisions < 1 || c.MinPerClass < 1 {
		return fmt.Errorf("min_decisions and min_per_class must be positive, got %d/%d", c.MinDecisions, c.MinPerClass)
	}
	for name, v := range map[string]float64{
		"sparse_baseline":     c.SparseBaseline,
		"no_signal_baseline":  c.NoSignalBaseline,
		"mastery_confidence":  c.MasteryConfidence,
		"learning_confidence": c.LearningConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, v)
		}
	}
	if c.LearningConfidence > c.MasteryConfidence {
		return fmt.Errorf("learning_confidence %f exceeds mastery_confidence %f", c.LearningConfidence, c.MasteryConfidence)
	}
	if c.ClusterRadiusMiles <= 0 || c.SeparationSaturationMiles <= 0 || c.ClusterSizeSaturation <= 0 {
		return fmt.Errorf("cluster radius, size saturation and separation saturation must be positive")
	}
	if c.ValueSeparationSaturation <= 0 || c.MaxDecades < 1 {
		return fmt.Errorf("value_separation_saturation and max_decades must be positive")
	}
	if c.HoldoutFraction <= 0 || c.HoldoutFraction >= 1 {
		return fmt.Errorf("holdout_fraction must be in (0, 1), got %f", c.HoldoutFraction)
	}
	if c.StabilityDays < 0 {
		return fmt.Errorf("stability_days must be non-negative, got %d", c.StabilityDays)
	}
	if c.MinRadiusMiles <= 0 || c.MaxRadiusMiles < c.MinRadiusMiles {
		return fmt.Errorf("radius bounds invalid: [%f, %f]", c.MinRadiusMiles, c.MaxRadiusMiles)
	}
	if c.BooleanSkew <= 0.5 || c.BooleanSkew > 1 {
		return fmt.Errorf("boolean_skew must be in (0.5, 1], got %f", c.BooleanSkew)
	}
	if c.MinFavorites < 1 || c.MinRangeSamples < 1 || c.MinBooleanSamples < 1 {
		return fmt.Errorf("learner sample minimums must be positive")
	}
	return nil
}
