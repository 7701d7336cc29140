package domain

// FactorKind says how a characteristic is compared across a pool.
type FactorKind int

const (
	FactorNumeric FactorKind = iota
	FactorBoolean
	FactorText
)

// FactorGroup is the family a characteristic belongs to. Used for reason text only.
type FactorGroup string

const (
	GroupPhysical  FactorGroup = "physical"
	GroupOwnership FactorGroup = "ownership"
	GroupStatus    FactorGroup = "status"
	GroupFinancial FactorGroup = "financial"
	GroupPortfolio FactorGroup = "portfolio"
)

// Characteristic is a typed accessor for one optional field of Property.
// Exactly one of Number, Flag or Text is set, matching Kind.
type Characteristic struct {
	Name   string
	Label  string
	Group  FactorGroup
	Kind   FactorKind
	Number func(Property) (float64, bool)
	Flag   func(Property) (bool, bool)
	Text   func(Property) (string, bool)
}

func intField(get func(Property) *int) func(Property) (float64, bool) {
	return func(p Property) (float64, bool) {
		v := get(p)
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	}
}

func floatField(get func(Property) *float64) func(Property) (float64, bool) {
	return func(p Property) (float64, bool) {
		v := get(p)
		if v == nil {
			return 0, false
		}
		return *v, true
	}
}

func boolField(get func(Property) *bool) func(Property) (bool, bool) {
	return func(p Property) (bool, bool) {
		v := get(p)
		if v == nil {
			return false, false
		}
		return *v, true
	}
}

func numeric(name, label string, g FactorGroup, fn func(Property) (float64, bool)) Characteristic {
	return Characteristic{Name: name, Label: label, Group: g, Kind: FactorNumeric, Number: fn}
}

func flag(name, label string, g FactorGroup, get func(Property) *bool) Characteristic {
	return Characteristic{Name: name, Label: label, Group: g, Kind: FactorBoolean, Flag: boolField(get)}
}

var (
	Units          = numeric("units", "unit count", GroupPhysical, intField(func(p Property) *int { return p.Units }))
	YearBuilt      = numeric("year_built", "year built", GroupPhysical, intField(func(p Property) *int { return p.YearBuilt }))
	AssessedValue  = numeric("assessed_value", "assessed value", GroupFinancial, floatField(func(p Property) *float64 { return p.AssessedValue }))
	EstimatedValue = numeric("estimated_value", "estimated value", GroupFinancial, floatField(func(p Property) *float64 { return p.EstimatedValue }))
	EquityPercent  = numeric("equity_percent", "equity percent", GroupFinancial, Property.EquityRatio)
	RentEstimate   = numeric("rent_estimate", "rent estimate", GroupFinancial, floatField(func(p Property) *float64 { return p.RentEstimate }))
	YearsOwned     = numeric("years_owned", "years owned", GroupOwnership, intField(func(p Property) *int { return p.YearsOwned }))
	PortfolioSize  = numeric("portfolio_size", "owner portfolio size", GroupPortfolio, intField(func(p Property) *int { return p.PortfolioSize }))

	PropertyType = Characteristic{
		Name: "property_type", Label: "property type", Group: GroupPhysical, Kind: FactorText,
		Text: func(p Property) (string, bool) { return p.PropertyType, p.PropertyType != "" },
	}

	CorporateOwned          = flag("corporate_owned", "corporate owner", GroupOwnership, func(p Property) *bool { return p.CorporateOwned })
	AbsenteeOwner           = flag("absentee_owner", "absentee owner", GroupOwnership, func(p Property) *bool { return p.AbsenteeOwner })
	OutOfStateAbsenteeOwner = flag("out_of_state_absentee_owner", "out-of-state owner", GroupOwnership, func(p Property) *bool { return p.OutOfStateAbsenteeOwner })
	ForSale                 = flag("for_sale", "listed for sale", GroupStatus, func(p Property) *bool { return p.ForSale })
	MLSActive               = flag("mls_active", "active on MLS", GroupStatus, func(p Property) *bool { return p.MLSActive })
	Auction                 = flag("auction", "auction", GroupStatus, func(p Property) *bool { return p.Auction })
	REO                     = flag("reo", "bank owned", GroupStatus, func(p Property) *bool { return p.REO })
	PreForeclosure          = flag("pre_foreclosure", "pre-foreclosure", GroupStatus, func(p Property) *bool { return p.PreForeclosure })
	Assumable               = flag("assumable", "assumable loan", GroupFinancial, func(p Property) *bool { return p.Assumable })
	PrivateLender           = flag("private_lender", "private lender", GroupFinancial, func(p Property) *bool { return p.PrivateLender })
)

// DiversityFactors is the fixed factor list used to decide whether a property is
// unusual relative to a comparison set.
var DiversityFactors = []Characteristic{
	Units,
	YearBuilt,
	PropertyType,
	CorporateOwned,
	AbsenteeOwner,
	OutOfStateAbsenteeOwner,
	YearsOwned,
	ForSale,
	MLSActive,
	Auction,
	REO,
	PreForeclosure,
	Assumable,
	PrivateLender,
	EstimatedValue,
	EquityPercent,
	RentEstimate,
	PortfolioSize,
}

// LearnedRanges are the numeric characteristics a learned profile records ranges for.
var LearnedRanges = []Characteristic{
	Units,
	YearBuilt,
	AssessedValue,
	EstimatedValue,
	EquityPercent,
	RentEstimate,
	YearsOwned,
}

// LearnedFlags are the boolean characteristics a learned profile records leanings for.
var LearnedFlags = []Characteristic{
	CorporateOwned,
	AbsenteeOwner,
	OutOfStateAbsenteeOwner,
	ForSale,
	MLSActive,
	Auction,
	REO,
	PreForeclosure,
	Assumable,
	PrivateLender,
}

// Ptr returns a pointer to v. Handy for building optional fields.
func Ptr[T any](v T) *T { return &v }
