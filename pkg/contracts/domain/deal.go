package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Tier is the aggregation priority class of a deal. Lower values sort first.
type Tier int

const (
	// TierSameBuilding marks deals matched to the searched building itself
	TierSameBuilding Tier = 0
	// TierStreet marks deals from the same street
	TierStreet Tier = 1
	// TierNeighborhood marks deals from the surrounding neighborhood
	TierNeighborhood Tier = 2
)

// String returns the source label used in API responses and reports
func (t Tier) String() string {
	switch t {
	case TierSameBuilding:
		return "same_building"
	case TierStreet:
		return "street"
	case TierNeighborhood:
		return "neighborhood"
	default:
		return "unknown"
	}
}

// DealType distinguishes first-hand (new) from second-hand (used) transactions
type DealType int

const (
	DealTypeFirstHand  DealType = 1
	DealTypeSecondHand DealType = 2
)

// Label returns the human-readable deal type description
func (dt DealType) Label() string {
	if dt == DealTypeFirstHand {
		return "first_hand_new"
	}
	return "second_hand_used"
}

// IsValid checks if the deal type is one of the recognized values
func (dt DealType) IsValid() bool {
	return dt == DealTypeFirstHand || dt == DealTypeSecondHand
}

// Deal represents a single property transaction in canonical form.
// Raw registry records are mapped into this type by the normalizer; all
// downstream components (filtering, outlier screening, statistics, market
// analytics) consume only this shape.
type Deal struct {
	ID     string    `json:"deal_id,omitempty"`
	Date   time.Time `json:"deal_date"`
	Amount float64   `json:"deal_amount"`

	// Optional attributes; zero means not reported by the registry
	Area        float64 `json:"asset_area,omitempty"`
	Rooms       float64 `json:"rooms,omitempty"`
	Floor       string  `json:"floor,omitempty"`
	FloorNumber *int    `json:"floor_number,omitempty"`

	PropertyType string `json:"property_type,omitempty"`
	Settlement   string `json:"settlement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Street       string `json:"street,omitempty"`
	HouseNumber  string `json:"house_number,omitempty"`

	// Assigned during aggregation, not present on raw input
	Tier          Tier     `json:"priority"`
	Source        string   `json:"deal_source,omitempty"`
	SourcePolygon string   `json:"source_polygon_id,omitempty"`
	DealType      DealType `json:"deal_type,omitempty"`

	// Derived: Amount / Area rounded to 2 decimals, nil when area is
	// missing or non-positive. Never coerced to zero.
	PricePerSqm *float64 `json:"price_per_sqm,omitempty"`
}

// HasValidDate reports whether the deal carries a usable transaction date
func (d Deal) HasValidDate() bool {
	return !d.Date.IsZero()
}

// Address returns the normalized street address used by the same-building
// heuristic (lowercase "street house-number", trimmed).
func (d Deal) Address() string {
	return strings.ToLower(strings.TrimSpace(d.Street + " " + d.HouseNumber))
}

// DedupKey returns the key used for cross-batch deduplication: the source
// identifier plus transaction date, falling back to address plus date for
// records without an identifier.
func (d Deal) DedupKey() string {
	date := ""
	if !d.Date.IsZero() {
		date = d.Date.Format("2006-01-02")
	}
	if d.ID != "" {
		return d.ID + "|" + date
	}
	return d.Address() + "|" + date
}

// ComputePricePerSqm recomputes the derived price-per-sqm field. The value
// is defined only when area is a positive number.
func (d *Deal) ComputePricePerSqm() {
	if d.Area > 0 && !math.IsNaN(d.Amount) && !math.IsInf(d.Amount, 0) {
		v := Round2(d.Amount / d.Area)
		d.PricePerSqm = &v
		return
	}
	d.PricePerSqm = nil
}

// MonthKey returns the calendar month bucket of the deal date (YYYY-MM)
func (d Deal) MonthKey() string {
	return d.Date.Format("2006-01")
}

// QuarterKey returns the calendar quarter bucket of the deal date (YYYY-Qn)
func (d Deal) QuarterKey() string {
	q := (int(d.Date.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", d.Date.Year(), q)
}

// Round2 rounds a value to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds a value to 1 decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
