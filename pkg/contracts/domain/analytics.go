package domain

// MarketActivityScore summarizes deal frequency for a market area.
// The score is bounded to [0,100]; intermediate figures are carried so a
// caller can justify the score.
type MarketActivityScore struct {
	TotalDeals          int            `json:"total_deals"`
	UniqueMonths        int            `json:"unique_months"`
	DealsPerMonth       float64        `json:"deals_per_month"`
	ActivityScore       float64        `json:"activity_score"`
	ActivityLevel       string         `json:"activity_level"`
	Trend               string         `json:"trend"`
	TimePeriodMonths    int            `json:"time_period_months,omitempty"`
	MonthlyDistribution map[string]int `json:"monthly_distribution"`
}

// LiquidityMetrics summarizes market turnover and deal velocity
type LiquidityMetrics struct {
	TotalDeals         int            `json:"total_deals"`
	UniqueMonths       int            `json:"unique_months"`
	UniqueQuarters     int            `json:"unique_quarters"`
	DealsPerMonth      float64        `json:"deals_per_month"`
	DealsPerQuarter    float64        `json:"deals_per_quarter"`
	VelocityScore      float64        `json:"velocity_score"`
	LiquidityRating    string         `json:"liquidity_rating"`
	TrendDirection     string         `json:"trend_direction"`
	MostActivePeriod   string         `json:"most_active_period"`
	TimePeriodMonths   int            `json:"time_period_months,omitempty"`
	MonthlyBreakdown   map[string]int `json:"monthly_breakdown"`
	QuarterlyBreakdown map[string]int `json:"quarterly_breakdown"`
}

// InvestmentAnalysis holds price-trend and stability metrics for a market
// area. Scores are bounded to [0,100]; the analysis is recomputed in full on
// every call and never cached.
type InvestmentAnalysis struct {
	InvestmentScore       float64 `json:"investment_score"`
	PriceTrend            string  `json:"price_trend"`
	PriceAppreciationRate float64 `json:"price_appreciation_rate"`
	PriceVolatility       float64 `json:"price_volatility"`
	MarketStability       string  `json:"market_stability"`
	AvgPricePerSqm        float64 `json:"avg_price_per_sqm"`
	PriceChangePct        float64 `json:"price_change_pct"`
	SampleSize            int     `json:"sample_size"`
	DataQuality           string  `json:"data_quality"`
}
