package domain

// DateRange is the span of transaction dates covered by a deal sequence
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// DealStatistics holds descriptive statistics over a deal sequence.
//
// Each per-metric map contains mean, median, min, max, p25, p75 and std_dev
// keys (plus total for prices). A metric with no qualifying values yields an
// empty map, never a placeholder zero.
type DealStatistics struct {
	TotalDeals int `json:"total_deals"`

	PriceStats       map[string]float64 `json:"price_stats"`
	AreaStats        map[string]float64 `json:"area_stats"`
	PricePerSqmStats map[string]float64 `json:"price_per_sqm_stats"`

	// Count of deals per distinct property-type label
	PropertyTypeDistribution map[string]int `json:"property_type_distribution"`

	// Earliest and latest valid deal dates, nil when no deal has a date
	DateRange *DateRange `json:"date_range,omitempty"`
}
