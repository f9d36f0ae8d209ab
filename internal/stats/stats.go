// Package stats computes descriptive statistics over deal sets: per-metric
// summaries for price, area and price per sqm, property type distribution and
// the covered date range.
package stats

import (
	"math"
	"sort"
	"time"

	"nadlancli/pkg/contracts/domain"
)

// Compute summarizes a deal set. Metrics only include positive, present
// values; a metric with no usable values yields an empty map rather than
// zeroed entries.
func Compute(deals []domain.Deal) domain.DealStatistics {
	result := domain.DealStatistics{
		TotalDeals:               len(deals),
		PriceStats:               map[string]float64{},
		AreaStats:                map[string]float64{},
		PricePerSqmStats:         map[string]float64{},
		PropertyTypeDistribution: map[string]int{},
	}

	var prices, areas, pps []float64
	var dates []time.Time

	for _, d := range deals {
		if d.Amount > 0 {
			prices = append(prices, d.Amount)
		}
		if d.Area > 0 {
			areas = append(areas, d.Area)
		}
		if d.PricePerSqm != nil && *d.PricePerSqm > 0 {
			pps = append(pps, *d.PricePerSqm)
		}
		if d.PropertyType != "" {
			result.PropertyTypeDistribution[d.PropertyType]++
		}
		if !d.Date.IsZero() {
			dates = append(dates, d.Date)
		}
	}

	result.PriceStats = summarize(prices, medianInterpolated, true)
	result.AreaStats = summarize(areas, medianElement, false)
	result.PricePerSqmStats = summarize(pps, medianElement, false)

	if len(dates) > 0 {
		earliest, latest := dates[0], dates[0]
		for _, dt := range dates[1:] {
			if dt.Before(earliest) {
				earliest = dt
			}
			if dt.After(latest) {
				latest = dt
			}
		}
		result.DateRange = &domain.DateRange{
			Earliest: earliest.Format("2006-01-02"),
			Latest:   latest.Format("2006-01-02"),
		}
	}

	return result
}

// summarize builds the per-metric stats map. The median function varies per
// metric for historical output parity: prices interpolate the central pair on
// even counts while area and price per sqm take the single upper-middle
// element.
func summarize(values []float64, median func([]float64) float64, withTotal bool) map[string]float64 {
	stats := map[string]float64{}
	if len(values) == 0 {
		return stats
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	stats["count"] = float64(len(sorted))
	stats["min"] = sorted[0]
	stats["max"] = sorted[len(sorted)-1]
	stats["mean"] = domain.Round2(mean)
	stats["median"] = domain.Round2(median(sorted))
	stats["q1"] = domain.Round2(sorted[len(sorted)/4])
	stats["q3"] = domain.Round2(sorted[3*len(sorted)/4])
	stats["std_dev"] = domain.Round2(sampleStdDev(sorted, mean))
	if withTotal {
		stats["total"] = domain.Round2(sum)
	}
	return stats
}

// medianInterpolated averages the central pair on even counts
func medianInterpolated(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// medianElement takes the single upper-middle element regardless of parity
func medianElement(sorted []float64) float64 {
	return sorted[len(sorted)/2]
}

// sampleStdDev computes the sample standard deviation (n-1 denominator).
// Fewer than two values yields zero.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}
