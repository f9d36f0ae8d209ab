// Package market derives activity, liquidity and investment metrics from a
// deal set. All calculations are pure functions of the input deals; nothing
// is cached between calls.
package market

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"nadlancli/pkg/contracts/domain"
)

// Band edges for the activity score, in deals per month
const (
	activityVeryHighThreshold = 10.0
	activityHighThreshold     = 5.0
	activityModerateThreshold = 3.0
	activityLowThreshold      = 1.0
)

// Band edges for the liquidity velocity score, in deals per month
const (
	liquidityVeryHighThreshold = 8.0
	liquidityHighThreshold     = 5.0
	liquidityModerateThreshold = 2.0
	liquidityLowThreshold      = 0.5
)

// Band edges for price volatility, in coefficient-of-variation percent
const (
	volatilityVeryVolatileThreshold = 50.0
	volatilityVolatileThreshold     = 30.0
	volatilityModerateThreshold     = 20.0
	volatilityStableThreshold       = 10.0
)

// Minimum qualifying deals before investment analysis can run
const minInvestmentSample = 3

// Analyzer computes market analytics over deal sets
type Analyzer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyzer creates a market analyzer with the given logger
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		logger: logger.With(slog.String("component", "market_analyzer")),
		now:    time.Now,
	}
}

// dateBuckets groups valid deal dates by calendar month and quarter,
// optionally restricted to a trailing window of months. The window cutoff is
// approximated at 30 days per month.
func (a *Analyzer) dateBuckets(deals []domain.Deal, timePeriodMonths int) (int, map[string]int, map[string]int, error) {
	var cutoff time.Time
	if timePeriodMonths > 0 {
		cutoff = a.now().AddDate(0, 0, -timePeriodMonths*30)
	}

	monthly := map[string]int{}
	quarterly := map[string]int{}
	valid := 0

	for _, d := range deals {
		if !d.HasValidDate() {
			continue
		}
		if timePeriodMonths > 0 && d.Date.Before(cutoff) {
			continue
		}
		monthly[d.MonthKey()]++
		quarterly[d.QuarterKey()]++
		valid++
	}

	if valid == 0 {
		return 0, nil, nil, fmt.Errorf("no valid deal dates found: %w", domain.ErrInsufficientData)
	}
	return valid, monthly, quarterly, nil
}

// ActivityScore measures deal frequency for a market area. The score runs
// 0-100 over four deals-per-month bands with linear interpolation inside
// each band.
func (a *Analyzer) ActivityScore(deals []domain.Deal, timePeriodMonths int) (*domain.MarketActivityScore, error) {
	if len(deals) == 0 {
		return nil, fmt.Errorf("cannot calculate market activity from empty deals list: %w", domain.ErrInsufficientData)
	}

	total, monthly, _, err := a.dateBuckets(deals, timePeriodMonths)
	if err != nil {
		return nil, err
	}

	dpm := float64(total) / float64(len(monthly))

	var score float64
	var level string
	switch {
	case dpm >= activityVeryHighThreshold:
		score, level = 100, "very_high"
	case dpm >= activityHighThreshold:
		score = 75 + ((dpm-activityHighThreshold)/activityHighThreshold)*25
		level = "high"
	case dpm >= activityModerateThreshold:
		score = 50 + ((dpm-activityModerateThreshold)/(activityHighThreshold-activityModerateThreshold))*25
		level = "moderate"
	case dpm >= activityLowThreshold:
		score = 25 + ((dpm-activityLowThreshold)/(activityModerateThreshold-activityLowThreshold))*25
		level = "low"
	default:
		score = dpm * 25
		level = "very_low"
	}

	result := &domain.MarketActivityScore{
		TotalDeals:          total,
		UniqueMonths:        len(monthly),
		DealsPerMonth:       domain.Round2(dpm),
		ActivityScore:       domain.Round1(score),
		ActivityLevel:       level,
		Trend:               monthlyTrend(monthly),
		TimePeriodMonths:    timePeriodMonths,
		MonthlyDistribution: monthly,
	}

	a.logger.Debug("activity score calculated",
		slog.Int("total_deals", total),
		slog.Float64("deals_per_month", result.DealsPerMonth),
		slog.String("level", level),
	)
	return result, nil
}

// monthlyTrend compares the mean deals per month of the first half of the
// distinct months against the second half. Fewer than four distinct months
// cannot support a trend.
func monthlyTrend(monthly map[string]int) string {
	months := sortedKeys(monthly)
	if len(months) < 4 {
		return "insufficient_data"
	}

	mid := len(months) / 2
	firstAvg := meanCount(monthly, months[:mid])
	secondAvg := meanCount(monthly, months[mid:])

	var ratio float64
	if firstAvg > 0 {
		ratio = (secondAvg - firstAvg) / firstAvg
	}

	switch {
	case ratio > 0.15:
		return "increasing"
	case ratio < -0.15:
		return "decreasing"
	default:
		return "stable"
	}
}

// Liquidity measures market turnover: deal velocity per month and quarter,
// a velocity score over four bands, and the quarter-on-quarter trend.
func (a *Analyzer) Liquidity(deals []domain.Deal, timePeriodMonths int) (*domain.LiquidityMetrics, error) {
	if len(deals) == 0 {
		return nil, fmt.Errorf("cannot calculate market liquidity from empty deals list: %w", domain.ErrInsufficientData)
	}

	total, monthly, quarterly, err := a.dateBuckets(deals, timePeriodMonths)
	if err != nil {
		return nil, err
	}

	dpm := float64(total) / float64(len(monthly))
	dpq := float64(total) / float64(len(quarterly))

	var score float64
	var rating string
	switch {
	case dpm >= liquidityVeryHighThreshold:
		score, rating = 100, "very_high"
	case dpm >= liquidityHighThreshold:
		score = 75 + ((dpm-liquidityHighThreshold)/(liquidityVeryHighThreshold-liquidityHighThreshold))*25
		rating = "high"
	case dpm >= liquidityModerateThreshold:
		score = 50 + ((dpm-liquidityModerateThreshold)/(liquidityHighThreshold-liquidityModerateThreshold))*25
		rating = "moderate"
	case dpm >= liquidityLowThreshold:
		score = 25 + ((dpm-liquidityLowThreshold)/(liquidityModerateThreshold-liquidityLowThreshold))*25
		rating = "low"
	default:
		score = dpm * 50
		rating = "very_low"
	}

	return &domain.LiquidityMetrics{
		TotalDeals:         total,
		UniqueMonths:       len(monthly),
		UniqueQuarters:     len(quarterly),
		DealsPerMonth:      domain.Round2(dpm),
		DealsPerQuarter:    domain.Round2(dpq),
		VelocityScore:      domain.Round1(score),
		LiquidityRating:    rating,
		TrendDirection:     quarterlyTrend(quarterly),
		MostActivePeriod:   mostActivePeriod(quarterly),
		TimePeriodMonths:   timePeriodMonths,
		MonthlyBreakdown:   monthly,
		QuarterlyBreakdown: quarterly,
	}, nil
}

// quarterlyTrend compares the most recent quarter's deal count to the mean of
// all earlier quarters. Fewer than three distinct quarters cannot support a
// trend.
func quarterlyTrend(quarterly map[string]int) string {
	quarters := sortedKeys(quarterly)
	if len(quarters) < 3 {
		return "insufficient_data"
	}

	recent := float64(quarterly[quarters[len(quarters)-1]])
	earlier := meanCount(quarterly, quarters[:len(quarters)-1])

	switch {
	case recent > earlier*1.2:
		return "improving"
	case recent < earlier*0.8:
		return "declining"
	default:
		return "stable"
	}
}

// mostActivePeriod returns the quarter with the most deals, earliest quarter
// winning ties
func mostActivePeriod(quarterly map[string]int) string {
	if len(quarterly) == 0 {
		return "N/A"
	}
	best := ""
	bestCount := -1
	for _, q := range sortedKeys(quarterly) {
		if quarterly[q] > bestCount {
			best, bestCount = q, quarterly[q]
		}
	}
	return fmt.Sprintf("%s (%d deals)", best, bestCount)
}

// InvestmentPotential analyzes price trend and stability. It needs at least
// three deals carrying both a positive price per sqm and a valid date;
// anything less is a hard error, not a degraded result.
func (a *Analyzer) InvestmentPotential(deals []domain.Deal) (*domain.InvestmentAnalysis, error) {
	if len(deals) == 0 {
		return nil, fmt.Errorf("cannot analyze investment potential from empty deals list: %w", domain.ErrInsufficientData)
	}

	var points []pricePoint
	for _, d := range deals {
		if d.PricePerSqm == nil || *d.PricePerSqm <= 0 || !d.HasValidDate() {
			continue
		}
		t := float64(d.Date.Year()) + float64(d.Date.Month())/12.0
		points = append(points, pricePoint{t: t, price: *d.PricePerSqm})
	}

	if len(points) < minInvestmentSample {
		return nil, fmt.Errorf("need at least %d valid deals with price and date, got %d: %w",
			minInvestmentSample, len(points), domain.ErrInsufficientData)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].t < points[j].t })

	n := float64(len(points))
	var sumT, sumP, sumTP, sumT2 float64
	for _, p := range points {
		sumT += p.t
		sumP += p.price
		sumTP += p.t * p.price
		sumT2 += p.t * p.t
	}
	avgPrice := sumP / n

	// Closed-form OLS slope of price against fractional-year time,
	// converted to an annual percentage of the mean price
	var appreciationRate float64
	if denom := n*sumT2 - sumT*sumT; denom != 0 && avgPrice > 0 {
		slope := (n*sumTP - sumT*sumP) / denom
		appreciationRate = (slope / avgPrice) * 100
	}

	var priceChangePct float64
	if first := points[0].price; first > 0 {
		priceChangePct = ((points[len(points)-1].price - first) / first) * 100
	}

	priceTrend := "stable"
	if appreciationRate > 2 {
		priceTrend = "increasing"
	} else if appreciationRate < -2 {
		priceTrend = "decreasing"
	}

	// Coefficient of variation of price per sqm, mapped to a volatility
	// score where higher means less stable
	var cv float64
	if avgPrice > 0 {
		cv = (priceStdDev(points, avgPrice) / avgPrice) * 100
	}

	var volatilityScore float64
	var stability string
	switch {
	case cv > volatilityVeryVolatileThreshold:
		volatilityScore, stability = 100, "very_volatile"
	case cv > volatilityVolatileThreshold:
		volatilityScore = 75 + ((cv-volatilityVolatileThreshold)/(volatilityVeryVolatileThreshold-volatilityVolatileThreshold))*25
		stability = "volatile"
	case cv > volatilityModerateThreshold:
		volatilityScore = 50 + ((cv-volatilityModerateThreshold)/(volatilityVolatileThreshold-volatilityModerateThreshold))*25
		stability = "moderate"
	case cv > volatilityStableThreshold:
		volatilityScore = 25 + ((cv-volatilityStableThreshold)/(volatilityModerateThreshold-volatilityStableThreshold))*25
		stability = "stable"
	default:
		volatilityScore = (cv / volatilityStableThreshold) * 25
		stability = "very_stable"
	}

	appreciationComponent := math.Min(math.Max(appreciationRate*5, -25), 50)
	stabilityComponent := (100 - volatilityScore) * 0.5
	investmentScore := math.Max(0, math.Min(100, appreciationComponent+stabilityComponent))

	var quality string
	switch {
	case len(points) >= 20:
		quality = "excellent"
	case len(points) >= 10:
		quality = "good"
	case len(points) >= 5:
		quality = "fair"
	default:
		quality = "limited"
	}

	result := &domain.InvestmentAnalysis{
		InvestmentScore:       domain.Round1(investmentScore),
		PriceTrend:            priceTrend,
		PriceAppreciationRate: domain.Round2(appreciationRate),
		PriceVolatility:       domain.Round1(volatilityScore),
		MarketStability:       stability,
		AvgPricePerSqm:        math.Round(avgPrice),
		PriceChangePct:        domain.Round2(priceChangePct),
		SampleSize:            len(points),
		DataQuality:           quality,
	}

	a.logger.Debug("investment potential calculated",
		slog.Int("sample_size", len(points)),
		slog.Float64("appreciation_rate", result.PriceAppreciationRate),
		slog.String("trend", priceTrend),
	)
	return result, nil
}

// pricePoint pairs a fractional-year time with a price per sqm
type pricePoint struct {
	t, price float64
}

// priceStdDev computes the sample standard deviation of point prices
func priceStdDev(points []pricePoint, mean float64) float64 {
	if len(points) < 2 {
		return 0
	}
	var sq float64
	for _, p := range points {
		d := p.price - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(points)-1))
}

// sortedKeys returns the map keys in lexical order. Month and quarter keys
// sort chronologically under lexical order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// meanCount averages the counts of the given keys
func meanCount(m map[string]int, keys []string) float64 {
	if len(keys) == 0 {
		return 0
	}
	var sum int
	for _, k := range keys {
		sum += m[k]
	}
	return float64(sum) / float64(len(keys))
}
