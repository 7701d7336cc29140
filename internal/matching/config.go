package matching

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// PenaltyCaps are the maximum points a single out-of-range criterion can cost.
type PenaltyCaps struct {
	Units          float64 `json:"units" koanf:"units"`
	AssessedValue  float64 `json:"assessed_value" koanf:"assessed_value"`
	EstimatedValue float64 `json:"estimated_value" koanf:"estimated_value"`
	YearBuilt      float64 `json:"year_built" koanf:"year_built"`
}

// Bonuses are additive fit points for investment attractiveness.
type Bonuses struct {
	Equity         float64 `json:"equity" koanf:"equity"`
	RentYield      float64 `json:"rent_yield" koanf:"rent_yield"`
	AbsenteeOwner  float64 `json:"absentee_owner" koanf:"absentee_owner"`
	LongOwnership  float64 `json:"long_ownership" koanf:"long_ownership"`
	PortfolioOwner float64 `json:"portfolio_owner" koanf:"portfolio_owner"`
	OffMarket      float64 `json:"off_market" koanf:"off_market"`
	Assumable      float64 `json:"assumable" koanf:"assumable"`
	LowLeverage    float64 `json:"low_leverage" koanf:"low_leverage"`
}

// Thresholds decide when a bonus fires.
type Thresholds struct {
	MinEquityRatio     float64 `json:"min_equity_ratio" koanf:"min_equity_ratio"`
	MinRentYield       float64 `json:"min_rent_yield" koanf:"min_rent_yield"`
	MinYearsOwned      int     `json:"min_years_owned" koanf:"min_years_owned"`
	MinPortfolioSize   int     `json:"min_portfolio_size" koanf:"min_portfolio_size"`
	MaxLoanToValue     float64 `json:"max_loan_to_value" koanf:"max_loan_to_value"`
	HighDiversityScore float64 `json:"high_diversity_score" koanf:"high_diversity_score"`
}

// Diversity tunes the unique-factor test.
type Diversity struct {
	// MaxSharedFraction: a boolean or text factor is unique when at most this share
	// of the comparison set has the same value.
	MaxSharedFraction float64 `json:"max_shared_fraction" koanf:"max_shared_fraction"`
	// MaxQuartileFraction: a numeric factor is unique when the property's quartile
	// holds at most this share of the comparison set.
	MaxQuartileFraction float64 `json:"max_quartile_fraction" koanf:"max_quartile_fraction"`
}

// Config holds every tuning constant of the scorer and selector.
type Config struct {
	FitWeight           float64     `json:"fit_weight" koanf:"fit_weight"`
	DiversityWeight     float64     `json:"diversity_weight" koanf:"diversity_weight"`
	NoveltyBoost        float64     `json:"novelty_boost" koanf:"novelty_boost"`
	PropertiesPerMarket int         `json:"properties_per_market" koanf:"properties_per_market"`
	MaxConcurrency      int         `json:"max_concurrency" koanf:"max_concurrency"`
	Penalties           PenaltyCaps `json:"penalties" koanf:"penalties"`
	Bonuses             Bonuses     `json:"bonuses" koanf:"bonuses"`
	Thresholds          Thresholds  `json:"thresholds" koanf:"thresholds"`
	Diversity           Diversity   `json:"diversity" koanf:"diversity"`
}

// DefaultConfig returns the weights the weekly pipeline runs with.
func DefaultConfig() Config {
	return Config{
		FitWeight:           0.6,
		DiversityWeight:     0.4,
		NoveltyBoost:        20,
		PropertiesPerMarket: 3,
		MaxConcurrency:      4,
		Penalties: PenaltyCaps{
			Units:          20,
			AssessedValue:  20,
			EstimatedValue: 15,
			YearBuilt:      15,
		},
		Bonuses: Bonuses{
			Equity:         10,
			RentYield:      10,
			AbsenteeOwner:  5,
			LongOwnership:  5,
			PortfolioOwner: 5,
			OffMarket:      8,
			Assumable:      7,
			LowLeverage:    5,
		},
		Thresholds: Thresholds{
			MinEquityRatio:     0.15,
			MinRentYield:       0.08,
			MinYearsOwned:      15,
			MinPortfolioSize:   5,
			MaxLoanToValue:     0.6,
			HighDiversityScore: 60,
		},
		Diversity: Diversity{
			MaxSharedFraction:   0.30,
			MaxQuartileFraction: 0.40,
		},
	}
}

// Validate checks the configuration for values the scorer cannot work with.
func (c Config) Validate() error {
	if c.FitWeight < 0 || c.DiversityWeight < 0 {
		return fmt.Errorf("fit_weight and diversity_weight must be non-negative, got %f/%f", c.FitWeight, c.DiversityWeight)
	}
	if c.FitWeight+c.DiversityWeight == 0 {
		return fmt.Errorf("fit_weight and diversity_weight cannot both be zero")
	}
	if c.NoveltyBoost < 0 {
		return fmt.Errorf("novelty_boost must be non-negative, got %f", c.NoveltyBoost)
	}
	if c.PropertiesPerMarket < 1 {
		return fmt.Errorf("properties_per_market must be positive, got %d", c.PropertiesPerMarket)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	for name, v := range map[string]float64{
		"penalties.units":           c.Penalties.Units,
		"penalties.assessed_value":  c.Penalties.AssessedValue,
		"penalties.estimated_value": c.Penalties.EstimatedValue,
		"penalties.year_built":      c.Penalties.YearBuilt,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, v)
		}
	}
	if f := c.Diversity.MaxSharedFraction; f <= 0 || f > 1 {
		return fmt.Errorf("diversity.max_shared_fraction must be in (0, 1], got %f", f)
	}
	if f := c.Diversity.MaxQuartileFraction; f <= 0 || f > 1 {
		return fmt.Errorf("diversity.max_quartile_fraction must be in (0, 1], got %f", f)
	}
	return nil
}

// LoadConfigFromFile loads weights from a JSON file on top of the defaults,
// returning the defaults alongside any read or decode error.
func LoadConfigFromFile(path string) (Config, error) {
	return OverlayConfigFile(DefaultConfig(), path)
}

// OverlayConfigFile decodes a JSON weights file over base. Fields the file omits keep
// base's values. On any error base is returned unchanged with the error.
func OverlayConfigFile(base Config, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read weights file: %w", err)
	}
	c := base
	if err := json.Unmarshal(b, &c); err != nil {
		return base, fmt.Errorf("unmarshal weights: %w", err)
	}
	if err := c.Validate(); err != nil {
		return base, fmt.Errorf("validate weights: %w", err)
	}
	return c, nil
}
