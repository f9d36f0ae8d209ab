// Package outlier screens real-estate deals for anomalous prices before
// statistics and market analytics run. It combines hard price bounds with a
// statistical pass (IQR or percent-from-median) and an optional percentage
// backup pass.
package outlier

// Method identifies the statistical outlier detection method
type Method string

// Supported outlier detection methods
const (
	MethodNone    Method = "none"
	MethodIQR     Method = "iqr"
	MethodPercent Method = "percent"
)

// IsValid checks if the method is supported
func (m Method) IsValid() bool {
	switch m {
	case MethodNone, MethodIQR, MethodPercent:
		return true
	}
	return false
}

// Metric identifies the value the statistical pass runs on
type Metric string

// Supported outlier metrics
const (
	MetricPricePerSqm Metric = "price_per_sqm"
	MetricAmount      Metric = "amount"
)

// Params controls a filtering run. Zero values are not meaningful; build
// Params from config via ParamsFromConfig or fill every field explicitly.
type Params struct {
	Method Method `json:"method"`
	// Metric selects the value screened by the statistical pass; empty
	// defaults to price per sqm
	Metric        Metric  `json:"metric"`
	IQRMultiplier float64 `json:"iqr_multiplier"`
	// PercentThreshold is the fractional band half-width around the median
	// for the percent method (0.5 means ±50%)
	PercentThreshold float64 `json:"percent_threshold"`

	// UseBackup enables the percentage backup pass after an IQR pass
	UseBackup       bool    `json:"use_backup"`
	BackupThreshold float64 `json:"backup_threshold"`

	// MinSample is the minimum deal count before any filtering runs; below
	// it the deals pass through unchanged, hard bounds included
	MinSample int `json:"min_sample"`

	// Hard bounds on price per square meter and total amount
	PricePerSqmMin float64 `json:"price_per_sqm_min"`
	PricePerSqmMax float64 `json:"price_per_sqm_max"`
	MinDealAmount  float64 `json:"min_deal_amount"`
}

// Report describes the outcome of a filtering run
type Report struct {
	TotalDeals      int    `json:"total_deals"`
	OutliersRemoved int    `json:"outliers_removed"`
	OutlierIndices  []int  `json:"outlier_indices"`
	MethodUsed      string `json:"method_used"`
	Parameters      Params `json:"parameters"`
	// Reason is set when the statistical pass was skipped
	Reason string `json:"reason,omitempty"`
}

// QuartileRange holds the quartile summary of a sample
type QuartileRange struct {
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Median float64 `json:"median"`
}
