package domain

import "time"

type MarketType string

const (
	MarketTypeCity MarketType = "city"
	MarketTypeZip  MarketType = "zip"
)

// Range is an inclusive numeric filter. A zero Max means "no upper bound".
type Range struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"omitempty,gte=0,gtefield=Min"`
}

// Bounded reports whether the range has both ends and can yield a midpoint.
func (r Range) Bounded() bool {
	return r.Max > 0 && r.Max >= r.Min
}

func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

func (r Range) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max <= 0 || v <= r.Max
}

// MarketCriteria is a user's standing buy box. MarketKey is the only field other
// subsystems may correlate on; Name is cosmetic and may be edited freely.
type MarketCriteria struct {
	MarketKey      string     `json:"market_key" validate:"required"`
	UserID         string     `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	Type           MarketType `json:"type" validate:"required,oneof=city zip"`
	City           string     `json:"city,omitempty" validate:"required_if=Type city"`
	State          string     `json:"state,omitempty"`
	Zip            string     `json:"zip,omitempty" validate:"required_if=Type zip"`
	Units          Range      `json:"units"`
	AssessedValue  Range      `json:"assessed_value"`
	EstimatedValue Range      `json:"estimated_value"`
	YearBuilt      Range      `json:"year_built"`
}

// DisplayName falls back to the market key when the user never named the market.
func (m MarketCriteria) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.MarketKey
}

// Property is a candidate from the listings source. Optional characteristics are
// pointers: nil means the source did not report the value.
type Property struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	PropertyType string `json:"property_type,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Units           *int     `json:"units,omitempty"`
	YearBuilt       *int     `json:"year_built,omitempty"`
	AssessedValue   *float64 `json:"assessed_value,omitempty"`
	EstimatedValue  *float64 `json:"estimated_value,omitempty"`
	EstimatedEquity *float64 `json:"estimated_equity,omitempty"`
	RentEstimate    *float64 `json:"rent_estimate,omitempty"` // monthly

	CorporateOwned          *bool `json:"corporate_owned,omitempty"`
	AbsenteeOwner           *bool `json:"absentee_owner,omitempty"`
	OutOfStateAbsenteeOwner *bool `json:"out_of_state_absentee_owner,omitempty"`
	YearsOwned              *int  `json:"years_owned,omitempty"`
	PortfolioSize           *int  `json:"portfolio_size,omitempty"`

	ForSale        *bool `json:"for_sale,omitempty"`
	MLSActive      *bool `json:"mls_active,omitempty"`
	Auction        *bool `json:"auction,omitempty"`
	REO            *bool `json:"reo,omitempty"`
	PreForeclosure *bool `json:"pre_foreclosure,omitempty"`
	Assumable      *bool `json:"assumable,omitempty"`
	PrivateLender  *bool `json:"private_lender,omitempty"`
}

// Coordinates returns the property's location when both parts are present.
func (p Property) Coordinates() (lat, lon float64, ok bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return 0, 0, false
	}
	return *p.Latitude, *p.Longitude, true
}

// EquityRatio is estimated equity over estimated value.
func (p Property) EquityRatio() (float64, bool) {
	if p.EstimatedEquity == nil || p.EstimatedValue == nil || *p.EstimatedValue <= 0 {
		return 0, false
	}
	return *p.EstimatedEquity / *p.EstimatedValue, true
}

// LoanToValue derives outstanding debt from value minus equity.
func (p Property) LoanToValue() (float64, bool) {
	eq, ok := p.EquityRatio()
	if !ok {
		return 0, false
	}
	ltv := 1 - eq
	if ltv < 0 {
		ltv = 0
	}
	return ltv, true
}

// AnnualRentYield is twelve months of estimated rent over estimated value.
func (p Property) AnnualRentYield() (float64, bool) {
	if p.RentEstimate == nil || p.EstimatedValue == nil || *p.EstimatedValue <= 0 {
		return 0, false
	}
	return *p.RentEstimate * 12 / *p.EstimatedValue, true
}

// ScoredCandidate is ephemeral: created per scoring pass and dropped after selection.
type ScoredCandidate struct {
	Property       Property `json:"property"`
	FitScore       float64  `json:"fit_score"`
	DiversityScore float64  `json:"diversity_score"`
	TotalScore     float64  `json:"total_score"`
	Reasons        []string `json:"reasons"`
	Justification  string   `json:"justification,omitempty"`
}

type BatchStatus string

const (
	BatchStatusOK                BatchStatus = "ok"
	BatchStatusNoPropertiesFound BatchStatus = "no_properties_found"
)

// RecommendationBatch is one orchestration run for one market.
type RecommendationBatch struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id,omitempty"`
	MarketKey       string            `json:"market_key"`
	MarketName      string            `json:"market_name"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Status          BatchStatus       `json:"status"`
	Summary         string            `json:"summary"`
	TotalCandidates int               `json:"total_candidates"`
	Recommendations []ScoredCandidate `json:"recommendations"`
}

type Decision string

const (
	DecisionFavorite      Decision = "favorite"
	DecisionNotInterested Decision = "not_interested"
)

func (d Decision) Valid() bool {
	return d == DecisionFavorite || d == DecisionNotInterested
}

// UserDecision is immutable once written. Snapshot is a copy of the property as it
// looked when the user reacted, not a live reference to the listing.
type UserDecision struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id" validate:"required"`
	MarketKey  string    `json:"market_key" validate:"required"`
	PropertyID string    `json:"property_id" validate:"required"`
	Decision   Decision  `json:"decision" validate:"required,oneof=favorite not_interested"`
	Snapshot   Property  `json:"snapshot"`
	DecidedAt  time.Time `json:"decided_at"`
}

func (d UserDecision) IsFavorite() bool { return d.Decision == DecisionFavorite }

type MarketPhase string

const (
	PhaseDiscovery  MarketPhase = "discovery"
	PhaseLearning   MarketPhase = "learning"
	PhaseMastery    MarketPhase = "mastery"
	PhaseProduction MarketPhase = "production"
)

// MarketState is owned by the phase state machine.
type MarketState struct {
	UserID             string              `json:"user_id"`
	MarketKey          string              `json:"market_key"`
	Phase              MarketPhase         `json:"phase"`
	Confidence         float64             `json:"confidence"`
	MasteryAchievedAt  *time.Time          `json:"mastery_achieved_at,omitempty"`
	LearnedPreferences *LearnedPreferences `json:"learned_preferences,omitempty"`
	ProductionNotified bool                `json:"production_notified"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewMarketState is the initial state for a market the state machine has never seen.
func NewMarketState(userID, marketKey string) MarketState {
	return MarketState{UserID: userID, MarketKey: marketKey, Phase: PhaseDiscovery}
}

// LearnedPreferences is a re-derivable snapshot, never updated incrementally.
type LearnedPreferences struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Favorites   int                          `json:"favorites"`
	Geographic  *GeoPreference               `json:"geographic,omitempty"`
	Ranges      map[string]RangePreference   `json:"ranges"`
	Booleans    map[string]BooleanPreference `json:"booleans"`
}

type GeoPreference struct {
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	RadiusMiles     float64 `json:"radius_miles"`
	Samples         int     `json:"samples"`
}

type RangePreference struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Samples int     `json:"samples"`
}

type BooleanPreference struct {
	Preferred  bool    `json:"preferred"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}
