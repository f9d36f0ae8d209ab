// Package services wires the registry aggregation and the analysis engines
// into the operations exposed over HTTP and the CLI.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"nadlancli/internal/aggregate"
	"nadlancli/internal/config"
	"nadlancli/internal/filter"
	"nadlancli/internal/govmap"
	"nadlancli/internal/market"
	"nadlancli/internal/outlier"
	"nadlancli/internal/stats"
	"nadlancli/pkg/contracts/domain"
)

// DealFinder is the aggregation surface the service needs
type DealFinder interface {
	FindRecentDeals(ctx context.Context, address string, params aggregate.Params) ([]domain.Deal, error)
}

// ParcelLocator resolves an address to its cadastral block/parcel record
type ParcelLocator interface {
	ResolveAddress(ctx context.Context, address string) (govmap.Point, error)
	BlockParcelAt(ctx context.Context, point govmap.Point) (json.RawMessage, error)
}

// SearchRequest holds the user-facing search parameters. Zero values fall
// back to configured defaults.
type SearchRequest struct {
	Address   string `json:"address" validate:"required,max=500"`
	YearsBack int    `json:"years_back,omitempty" validate:"omitempty,min=1,max=50"`
	Radius    int    `json:"radius,omitempty" validate:"omitempty,min=1,max=5000"`
	MaxDeals  int    `json:"max_deals,omitempty" validate:"omitempty,min=1,max=10000"`
	DealType  int    `json:"deal_type,omitempty" validate:"omitempty,oneof=1 2"`
}

// AnalysisReport is the full output of a comprehensive analysis run
type AnalysisReport struct {
	ReportID    string    `json:"report_id"`
	Address     string    `json:"address"`
	GeneratedAt time.Time `json:"generated_at"`

	Deals []domain.Deal `json:"deals"`

	RawStatistics      domain.DealStatistics `json:"raw_statistics"`
	FilteredStatistics domain.DealStatistics `json:"filtered_statistics"`
	OutlierReport      outlier.Report        `json:"outlier_report"`

	Activity   *domain.MarketActivityScore `json:"market_activity,omitempty"`
	Liquidity  *domain.LiquidityMetrics    `json:"liquidity,omitempty"`
	Investment *domain.InvestmentAnalysis  `json:"investment,omitempty"`

	// Warnings carries the analytics that could not run on this sample
	Warnings []string `json:"warnings,omitempty"`
}

// AnalysisService runs deal searches and analysis pipelines
type AnalysisService struct {
	finder   DealFinder
	locator  ParcelLocator
	engine   *outlier.Engine
	analyzer *market.Analyzer
	cfg      config.Config
	logger   *slog.Logger
}

// NewAnalysisService creates the analysis service. The locator may be nil
// when parcel lookups are not needed.
func NewAnalysisService(finder DealFinder, locator ParcelLocator, cfg config.Config, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		finder:   finder,
		locator:  locator,
		engine:   outlier.NewEngine(logger),
		analyzer: market.NewAnalyzer(logger),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "analysis_service")),
	}
}

// searchParams merges request values with configured defaults
func (s *AnalysisService) searchParams(req SearchRequest) aggregate.Params {
	params := aggregate.Params{
		YearsBack:            s.cfg.Govmap.DefaultYearsBack,
		Radius:               s.cfg.Govmap.DefaultRadius,
		MaxDeals:             s.cfg.Govmap.DefaultDealLimit,
		DealType:             domain.DealTypeSecondHand,
		MaxConcurrentFetches: s.cfg.Govmap.MaxConcurrentFetches,
	}
	if req.YearsBack > 0 {
		params.YearsBack = req.YearsBack
	}
	if req.Radius > 0 {
		params.Radius = req.Radius
	}
	if req.MaxDeals > 0 {
		params.MaxDeals = req.MaxDeals
	}
	if req.DealType > 0 {
		params.DealType = domain.DealType(req.DealType)
	}
	return params
}

// FindDeals runs the aggregation search for an address
func (s *AnalysisService) FindDeals(ctx context.Context, req SearchRequest) ([]domain.Deal, error) {
	return s.finder.FindRecentDeals(ctx, req.Address, s.searchParams(req))
}

// FilterDeals applies criteria to an already-fetched deal set
func (s *AnalysisService) FilterDeals(deals []domain.Deal, criteria domain.FilterCriteria) ([]domain.Deal, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	return filter.Apply(deals, criteria), nil
}

// Statistics computes descriptive statistics over a deal set
func (s *AnalysisService) Statistics(deals []domain.Deal) domain.DealStatistics {
	return stats.Compute(deals)
}

// ScreenOutliers runs outlier filtering with the configured parameters.
// A non-empty method or metric overrides the configured defaults.
func (s *AnalysisService) ScreenOutliers(deals []domain.Deal, method outlier.Method, metric outlier.Metric) ([]domain.Deal, outlier.Report, error) {
	params := outlier.ParamsFromConfig(s.cfg.Analysis)
	if method != "" {
		if !method.IsValid() {
			return nil, outlier.Report{}, fmt.Errorf("unknown outlier method %q: %w", method, domain.ErrInvalidInput)
		}
		params.Method = method
	}
	if metric != "" {
		if metric != outlier.MetricPricePerSqm && metric != outlier.MetricAmount {
			return nil, outlier.Report{}, fmt.Errorf("unknown outlier metric %q: %w", metric, domain.ErrInvalidInput)
		}
		params.Metric = metric
	}
	filtered, report := s.engine.FilterForAnalysis(deals, params)
	return filtered, report, nil
}

// MarketActivity computes the activity score over a deal set
func (s *AnalysisService) MarketActivity(deals []domain.Deal, timePeriodMonths int) (*domain.MarketActivityScore, error) {
	return s.analyzer.ActivityScore(deals, timePeriodMonths)
}

// MarketLiquidity computes liquidity metrics over a deal set
func (s *AnalysisService) MarketLiquidity(deals []domain.Deal, timePeriodMonths int) (*domain.LiquidityMetrics, error) {
	return s.analyzer.Liquidity(deals, timePeriodMonths)
}

// InvestmentPotential computes investment metrics over a deal set
func (s *AnalysisService) InvestmentPotential(deals []domain.Deal) (*domain.InvestmentAnalysis, error) {
	return s.analyzer.InvestmentPotential(deals)
}

// ComprehensiveAnalysis runs the full pipeline for an address: aggregation,
// raw statistics, outlier screening, filtered statistics and the three
// market analytics. Analytics that cannot run on the sample degrade to
// warnings instead of failing the report.
func (s *AnalysisService) ComprehensiveAnalysis(ctx context.Context, req SearchRequest) (*AnalysisReport, error) {
	deals, err := s.FindDeals(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find deals: %w", err)
	}
	if len(deals) == 0 {
		return nil, fmt.Errorf("no deals found for address %q: %w", req.Address, domain.ErrNoResults)
	}

	report := &AnalysisReport{
		ReportID:    uuid.New().String(),
		Address:     req.Address,
		GeneratedAt: time.Now().UTC(),
		Deals:       deals,
	}

	report.RawStatistics = stats.Compute(deals)

	filtered, outlierReport := s.engine.FilterForAnalysis(deals, outlier.ParamsFromConfig(s.cfg.Analysis))
	report.OutlierReport = outlierReport
	report.FilteredStatistics = stats.Compute(filtered)

	// Analytics run on the screened set; the trailing window matches the
	// requested search depth
	months := s.searchParams(req).YearsBack * 12

	if activity, err := s.analyzer.ActivityScore(filtered, months); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("market activity unavailable: %v", err))
	} else {
		report.Activity = activity
	}

	if liquidity, err := s.analyzer.Liquidity(filtered, months); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("liquidity unavailable: %v", err))
	} else {
		report.Liquidity = liquidity
	}

	if investment, err := s.analyzer.InvestmentPotential(filtered); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("investment analysis unavailable: %v", err))
	} else {
		report.Investment = investment
	}

	s.logger.InfoContext(ctx, "comprehensive analysis complete",
		slog.String("report_id", report.ReportID),
		slog.String("address", req.Address),
		slog.Int("deals", len(deals)),
		slog.Int("outliers_removed", outlierReport.OutliersRemoved),
		slog.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// ComparisonRequest holds the parameters for a multi-address comparison.
// Zero values fall back to configured defaults per address.
type ComparisonRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=2,max=10,dive,required,max=500"`
	YearsBack int      `json:"years_back,omitempty" validate:"omitempty,min=1,max=50"`
	Radius    int      `json:"radius,omitempty" validate:"omitempty,min=1,max=5000"`
	DealType  int      `json:"deal_type,omitempty" validate:"omitempty,oneof=1 2"`
}

// NeighborhoodComparison summarizes the market around one address
type NeighborhoodComparison struct {
	Address    string             `json:"address"`
	TotalDeals int                `json:"total_deals"`
	PriceStats map[string]float64 `json:"price_stats"`
	AreaStats  map[string]float64 `json:"area_stats"`
	// Error is set when the address search failed
	Error string `json:"error,omitempty"`
}

// ComparisonReport ranks multiple neighborhoods by average deal price
type ComparisonReport struct {
	ReportID    string                   `json:"report_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Compared    int                      `json:"neighborhoods_compared"`
	Ranking     []NeighborhoodComparison `json:"ranking_by_average_price"`
	Results     []NeighborhoodComparison `json:"results"`
}

// CompareNeighborhoods runs the deal search for each address and ranks the
// markets by average price. A failed address degrades to an error entry in
// the results instead of failing the whole comparison; the ranking covers
// only addresses with a positive average price.
func (s *AnalysisService) CompareNeighborhoods(ctx context.Context, req ComparisonRequest) (*ComparisonReport, error) {
	if len(req.Addresses) < 2 {
		return nil, fmt.Errorf("%w: comparison needs at least two addresses", domain.ErrInvalidInput)
	}

	results := make([]NeighborhoodComparison, 0, len(req.Addresses))
	for _, address := range req.Addresses {
		deals, err := s.FindDeals(ctx, SearchRequest{
			Address:   address,
			YearsBack: req.YearsBack,
			Radius:    req.Radius,
			DealType:  req.DealType,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "comparison address failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
			results = append(results, NeighborhoodComparison{Address: address, Error: err.Error()})
			continue
		}

		st := stats.Compute(deals)
		results = append(results, NeighborhoodComparison{
			Address:    address,
			TotalDeals: len(deals),
			PriceStats: st.PriceStats,
			AreaStats:  st.AreaStats,
		})
	}

	ranking := make([]NeighborhoodComparison, 0, len(results))
	for _, c := range results {
		if c.PriceStats["mean"] > 0 {
			ranking = append(ranking, c)
		}
	}
	// Stable sort keeps the request order on equal averages
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].PriceStats["mean"] > ranking[j].PriceStats["mean"]
	})

	report := &ComparisonReport{
		ReportID:    uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Compared:    len(req.Addresses),
		Ranking:     ranking,
		Results:     results,
	}

	s.logger.InfoContext(ctx, "neighborhood comparison complete",
		slog.String("report_id", report.ReportID),
		slog.Int("addresses", len(req.Addresses)),
		slog.Int("ranked", len(ranking)),
	)
	return report, nil
}

// ParcelInfo is the cadastral lookup result for an address
type ParcelInfo struct {
	Address  string          `json:"address"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Entities json.RawMessage `json:"entities"`
}

// BlockParcel resolves an address and returns the cadastral block/parcel
// entities at its coordinate
func (s *AnalysisService) BlockParcel(ctx context.Context, address string) (*ParcelInfo, error) {
	if s.locator == nil {
		return nil, fmt.Errorf("parcel lookup is not configured")
	}

	address, err := govmap.ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	point, err := s.locator.ResolveAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}

	entities, err := s.locator.BlockParcelAt(ctx, point)
	if err != nil {
		return nil, fmt.Errorf("block parcel lookup: %w", err)
	}

	return &ParcelInfo{Address: address, X: point.X, Y: point.Y, Entities: entities}, nil
}
