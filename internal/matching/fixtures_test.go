package matching

import (
	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// baseProperty is a small, listed duplex-style building. distinctProperty differs
// from it on every diversity factor.
func baseProperty(id string) domain.Property {
	return domain.Property{
		ID:                      id,
		Address:                 "100 Main St",
		City:                    "Austin",
		State:                   "TX",
		Zip:                     "78701",
		PropertyType:            "multi_family",
		Latitude:                domain.Ptr(30.2672),
		Longitude:               domain.Ptr(-97.7431),
		Units:                   domain.Ptr(4),
		YearBuilt:               domain.Ptr(1980),
		AssessedValue:           domain.Ptr(450000.0),
		EstimatedValue:          domain.Ptr(500000.0),
		EstimatedEquity:         domain.Ptr(100000.0),
		RentEstimate:            domain.Ptr(3000.0),
		CorporateOwned:          domain.Ptr(false),
		AbsenteeOwner:           domain.Ptr(false),
		OutOfStateAbsenteeOwner: domain.Ptr(false),
		YearsOwned:              domain.Ptr(5),
		PortfolioSize:           domain.Ptr(1),
		ForSale:                 domain.Ptr(true),
		MLSActive:               domain.Ptr(true),
		Auction:                 domain.Ptr(false),
		REO:                     domain.Ptr(false),
		PreForeclosure:          domain.Ptr(false),
		Assumable:               domain.Ptr(false),
		PrivateLender:           domain.Ptr(false),
	}
}

func distinctProperty(id string) domain.Property {
	return domain.Property{
		ID:                      id,
		Address:                 "9 Industrial Way",
		City:                    "Austin",
		State:                   "TX",
		Zip:                     "78744",
		PropertyType:            "commercial",
		Latitude:                domain.Ptr(30.1900),
		Longitude:               domain.Ptr(-97.7000),
		Units:                   domain.Ptr(40),
		YearBuilt:               domain.Ptr(2015),
		AssessedValue:           domain.Ptr(4500000.0),
		EstimatedValue:          domain.Ptr(5000000.0),
		EstimatedEquity:         domain.Ptr(4000000.0),
		RentEstimate:            domain.Ptr(40000.0),
		CorporateOwned:          domain.Ptr(true),
		AbsenteeOwner:           domain.Ptr(true),
		OutOfStateAbsenteeOwner: domain.Ptr(true),
		YearsOwned:              domain.Ptr(30),
		PortfolioSize:           domain.Ptr(20),
		ForSale:                 domain.Ptr(false),
		MLSActive:               domain.Ptr(false),
		Auction:                 domain.Ptr(true),
		REO:                     domain.Ptr(true),
		PreForeclosure:          domain.Ptr(true),
		Assumable:               domain.Ptr(true),
		PrivateLender:           domain.Ptr(true),
	}
}

func austinMarket() domain.MarketCriteria {
	return domain.MarketCriteria{
		MarketKey:      "mk-austin",
		Name:           "Austin small multifamily",
		Type:           domain.MarketTypeCity,
		City:           "Austin",
		State:          "TX",
		Units:          domain.Range{Min: 2, Max: 10},
		EstimatedValue: domain.Range{Min: 300000, Max: 900000},
		YearBuilt:      domain.Range{Min: 1960, Max: 2000},
	}
}
