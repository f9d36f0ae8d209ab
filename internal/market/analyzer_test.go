package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nadlancli/pkg/contracts/domain"
)

func fixedAnalyzer(now string) *Analyzer {
	a := NewAnalyzer(nil)
	t, _ := time.Parse("2006-01-02", now)
	a.now = func() time.Time { return t }
	return a
}

func dealOn(date string, pps float64) domain.Deal {
	t, _ := time.Parse("2006-01-02", date)
	d := domain.Deal{Date: t}
	if pps > 0 {
		d.PricePerSqm = &pps
	}
	return d
}

func TestActivityScoreEmptyDeals(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	_, err := a.ActivityScore(nil, 12)
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientData(err))
}

func TestActivityScoreEvenSpread(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	// One deal per month over a full year
	var deals []domain.Deal
	for m := 1; m <= 12; m++ {
		deals = append(deals, dealOn(time.Date(2024, time.Month(m), 10, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 0))
	}

	result, err := a.ActivityScore(deals, 0)
	require.NoError(t, err)

	assert.Equal(t, 12, result.TotalDeals)
	assert.Equal(t, 12, result.UniqueMonths)
	assert.Equal(t, 1.0, result.DealsPerMonth)
	assert.Equal(t, 25.0, result.ActivityScore)
	assert.Equal(t, "low", result.ActivityLevel)
	assert.Equal(t, "stable", result.Trend)
}

func TestActivityScoreBands(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	// 24 deals in two months puts deals-per-month at 12
	var deals []domain.Deal
	for i := 0; i < 12; i++ {
		deals = append(deals, dealOn("2024-11-05", 0))
		deals = append(deals, dealOn("2024-12-05", 0))
	}

	result, err := a.ActivityScore(deals, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.ActivityScore)
	assert.Equal(t, "very_high", result.ActivityLevel)
	assert.Equal(t, "insufficient_data", result.Trend)
}

func TestActivityScoreTimeWindow(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	deals := []domain.Deal{
		dealOn("2024-12-01", 0),
		dealOn("2024-11-01", 0),
		dealOn("2020-01-01", 0), // outside any recent window
	}

	result, err := a.ActivityScore(deals, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalDeals)
	assert.Equal(t, 2, result.UniqueMonths)
}

func TestMonthlyTrendIncreasing(t *testing.T) {
	monthly := map[string]int{
		"2024-01": 1, "2024-02": 1,
		"2024-03": 3, "2024-04": 3,
	}
	assert.Equal(t, "increasing", monthlyTrend(monthly))

	monthly = map[string]int{
		"2024-01": 3, "2024-02": 3,
		"2024-03": 1, "2024-04": 1,
	}
	assert.Equal(t, "decreasing", monthlyTrend(monthly))
}

func TestLiquidity(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	// Nine deals across three months in one quarter
	var deals []domain.Deal
	for i := 0; i < 3; i++ {
		deals = append(deals, dealOn("2024-01-10", 0))
		deals = append(deals, dealOn("2024-02-10", 0))
		deals = append(deals, dealOn("2024-03-10", 0))
	}

	result, err := a.Liquidity(deals, 0)
	require.NoError(t, err)

	assert.Equal(t, 9, result.TotalDeals)
	assert.Equal(t, 3, result.UniqueMonths)
	assert.Equal(t, 1, result.UniqueQuarters)
	assert.Equal(t, 3.0, result.DealsPerMonth)
	assert.Equal(t, 9.0, result.DealsPerQuarter)
	assert.InDelta(t, 58.3, result.VelocityScore, 0.05)
	assert.Equal(t, "moderate", result.LiquidityRating)
	assert.Equal(t, "insufficient_data", result.TrendDirection)
	assert.Equal(t, "2024-Q1 (9 deals)", result.MostActivePeriod)
}

func TestQuarterlyTrend(t *testing.T) {
	tests := []struct {
		name      string
		quarterly map[string]int
		want      string
	}{
		{
			name:      "improving",
			quarterly: map[string]int{"2024-Q1": 2, "2024-Q2": 2, "2024-Q3": 5},
			want:      "improving",
		},
		{
			name:      "declining",
			quarterly: map[string]int{"2024-Q1": 5, "2024-Q2": 5, "2024-Q3": 1},
			want:      "declining",
		},
		{
			name:      "stable",
			quarterly: map[string]int{"2024-Q1": 3, "2024-Q2": 3, "2024-Q3": 3},
			want:      "stable",
		},
		{
			name:      "too few quarters",
			quarterly: map[string]int{"2024-Q1": 3, "2024-Q2": 3},
			want:      "insufficient_data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quarterlyTrend(tt.quarterly))
		})
	}
}

func TestInvestmentPotentialInsufficientData(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	deals := []domain.Deal{
		dealOn("2024-01-10", 12000),
		dealOn("2024-02-10", 12500),
	}

	_, err := a.InvestmentPotential(deals)
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientData(err))
}

func TestInvestmentPotentialRisingPrices(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	deals := []domain.Deal{
		dealOn("2024-01-10", 1000000),
		dealOn("2024-02-10", 1100000),
		dealOn("2024-03-10", 1200000),
	}

	result, err := a.InvestmentPotential(deals)
	require.NoError(t, err)

	assert.Equal(t, "increasing", result.PriceTrend)
	assert.Greater(t, result.PriceAppreciationRate, 2.0)
	assert.Equal(t, 3, result.SampleSize)
	assert.Equal(t, "limited", result.DataQuality)
	assert.Equal(t, 1100000.0, result.AvgPricePerSqm)
	assert.InDelta(t, 20.0, result.PriceChangePct, 0.01)
	assert.Equal(t, "very_stable", result.MarketStability)
}

func TestInvestmentPotentialSkipsInvalidPoints(t *testing.T) {
	a := fixedAnalyzer("2025-01-15")

	deals := []domain.Deal{
		dealOn("2024-01-10", 12000),
		dealOn("2024-02-10", 12100),
		dealOn("2024-03-10", 0),  // no price per sqm
		{PricePerSqm: nil},       // no date either
		dealOn("2024-04-10", 12200),
	}

	result, err := a.InvestmentPotential(deals)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SampleSize)
}
