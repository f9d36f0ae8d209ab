package outlier

import (
	"log/slog"
	"sort"

	"nadlancli/internal/config"
	"nadlancli/pkg/contracts/domain"
)

// Engine performs outlier screening on deal sets
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an outlier engine with the given logger
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With(slog.String("component", "outlier_engine")),
	}
}

// ParamsFromConfig builds filter parameters from analysis configuration
func ParamsFromConfig(cfg config.AnalysisConfig) Params {
	return Params{
		Method:           Method(cfg.OutlierMethod),
		Metric:           MetricPricePerSqm,
		IQRMultiplier:    cfg.IQRMultiplier,
		PercentThreshold: cfg.PercentThreshold,
		UseBackup:        cfg.UsePercentageBackup,
		BackupThreshold:  cfg.BackupThreshold,
		MinSample:        cfg.MinDealsForOutlierDetection,
		PricePerSqmMin:   cfg.PricePerSqmMin,
		PricePerSqmMax:   cfg.PricePerSqmMax,
		MinDealAmount:    cfg.MinDealAmount,
	}
}

// Quartiles computes the quartile summary of values using index-based
// quartiles: with the values sorted, Q1 is element n/4 and Q3 is element
// 3n/4, non-interpolated. Kept for historical output parity. Returns false
// on empty input.
func Quartiles(values []float64, multiplier float64) (QuartileRange, bool) {
	n := len(values)
	if n == 0 {
		return QuartileRange{}, false
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := sorted[n/4]
	q3 := sorted[3*n/4]
	iqr := q3 - q1

	return QuartileRange{
		Q1:     q1,
		Q3:     q3,
		IQR:    iqr,
		Lower:  q1 - multiplier*iqr,
		Upper:  q3 + multiplier*iqr,
		Median: sorted[n/2],
	}, true
}

// FlagIQR returns the indices of values falling outside the IQR fences.
// Fewer than four values flags nothing.
func FlagIQR(values []float64, multiplier float64) []int {
	if len(values) < 4 {
		return nil
	}
	qr, _ := Quartiles(values, multiplier)

	var flagged []int
	for i, v := range values {
		if v < qr.Lower || v > qr.Upper {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

// FlagPercent returns the indices of values outside a fractional band around
// the median: [median*(1-threshold), median*(1+threshold)]. The median is the
// single element at position n/2 of the sorted values.
func FlagPercent(values []float64, threshold float64) []int {
	n := len(values)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	median := sorted[n/2]

	lower := median * (1 - threshold)
	upper := median * (1 + threshold)

	var flagged []int
	for i, v := range values {
		if v < lower || v > upper {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

// FilterForAnalysis removes outlier deals ahead of statistics and market
// analytics. The pipeline runs hard price bounds first, then the configured
// statistical method on the survivors, then an optional percentage backup
// pass. When the method is disabled or the sample is too small the deals are
// returned unchanged.
func (e *Engine) FilterForAnalysis(deals []domain.Deal, p Params) ([]domain.Deal, Report) {
	report := Report{
		TotalDeals: len(deals),
		MethodUsed: string(p.Method),
		Parameters: p,
	}

	if p.Method == MethodNone || len(deals) < p.MinSample {
		report.Reason = "disabled or insufficient data"
		e.logger.Debug("outlier filtering skipped",
			slog.String("method", string(p.Method)),
			slog.Int("deals", len(deals)),
			slog.Int("min_sample", p.MinSample),
		)
		return deals, report
	}

	flagged := make(map[int]bool)

	// Hard bounds apply to every deal regardless of distribution shape.
	// Deals without a computable price per sqm are not bound-flagged.
	for i, d := range deals {
		if d.PricePerSqm != nil {
			pps := *d.PricePerSqm
			if pps < p.PricePerSqmMin || pps > p.PricePerSqmMax {
				flagged[i] = true
				continue
			}
		}
		if d.Amount < p.MinDealAmount {
			flagged[i] = true
		}
	}

	metric := p.Metric
	if metric == "" {
		metric = MetricPricePerSqm
	}

	// Statistical pass on the survivors, tracking original indices so the
	// flags map back to the input slice
	values, indices := survivorValues(deals, flagged, metric)
	switch p.Method {
	case MethodIQR:
		for _, j := range FlagIQR(values, p.IQRMultiplier) {
			flagged[indices[j]] = true
		}
	case MethodPercent:
		for _, j := range FlagPercent(values, p.PercentThreshold) {
			flagged[indices[j]] = true
		}
	}

	// Backup percentage pass catches extremes the IQR fences miss on very
	// wide distributions
	if p.Method == MethodIQR && p.UseBackup {
		values, indices = survivorValues(deals, flagged, metric)
		for _, j := range FlagPercent(values, p.BackupThreshold) {
			flagged[indices[j]] = true
		}
	}

	filtered := make([]domain.Deal, 0, len(deals)-len(flagged))
	outlierIndices := make([]int, 0, len(flagged))
	for i, d := range deals {
		if flagged[i] {
			outlierIndices = append(outlierIndices, i)
			continue
		}
		filtered = append(filtered, d)
	}
	sort.Ints(outlierIndices)

	report.OutliersRemoved = len(outlierIndices)
	report.OutlierIndices = outlierIndices

	e.logger.Info("outlier filtering complete",
		slog.String("method", string(p.Method)),
		slog.Int("total", len(deals)),
		slog.Int("removed", len(outlierIndices)),
	)

	return filtered, report
}

// survivorValues collects the metric values of unflagged deals together
// with their original indices. Deals missing the metric are excluded from
// the statistical sample but keep their survivor status.
func survivorValues(deals []domain.Deal, flagged map[int]bool, metric Metric) ([]float64, []int) {
	var values []float64
	var indices []int
	for i, d := range deals {
		if flagged[i] {
			continue
		}
		var v float64
		switch metric {
		case MetricAmount:
			v = d.Amount
		default:
			if d.PricePerSqm == nil {
				continue
			}
			v = *d.PricePerSqm
		}
		values = append(values, v)
		indices = append(indices, i)
	}
	return values, indices
}
