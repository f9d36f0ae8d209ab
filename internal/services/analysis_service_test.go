package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nadlancli/internal/aggregate"
	"nadlancli/internal/config"
	"nadlancli/internal/govmap"
	"nadlancli/internal/outlier"
	"nadlancli/pkg/contracts/domain"
)

type stubFinder struct {
	deals  []domain.Deal
	err    error
	params aggregate.Params
}

func (s *stubFinder) FindRecentDeals(ctx context.Context, address string, params aggregate.Params) ([]domain.Deal, error) {
	s.params = params
	return s.deals, s.err
}

func testConfig() config.Config {
	return config.Config{
		Govmap: config.GovmapConfig{
			DefaultRadius:        30,
			DefaultYearsBack:     2,
			DefaultDealLimit:     100,
			MaxConcurrentFetches: 4,
		},
		Analysis: config.AnalysisConfig{
			OutlierMethod:               "iqr",
			IQRMultiplier:               1.5,
			PercentThreshold:            0.5,
			UsePercentageBackup:         true,
			BackupThreshold:             1.0,
			MinDealsForOutlierDetection: 8,
			PricePerSqmMin:              5000,
			PricePerSqmMax:              100000,
			MinDealAmount:               500000,
		},
	}
}

func monthlyDeals(n int) []domain.Deal {
	// Dates stay within the trailing analytics window regardless of when
	// the test runs
	deals := make([]domain.Deal, 0, n)
	base := time.Now().UTC().AddDate(0, -11, 0)
	for i := 0; i < n; i++ {
		d := domain.Deal{
			ID:     fmt.Sprintf("d%d", i),
			Date:   base.AddDate(0, i%12, 0),
			Amount: 1200000 + float64(i)*10000,
			Area:   80,
		}
		d.ComputePricePerSqm()
		deals = append(deals, d)
	}
	return deals
}

func TestSearchParamsDefaults(t *testing.T) {
	finder := &stubFinder{deals: monthlyDeals(3)}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	_, err := svc.FindDeals(context.Background(), SearchRequest{Address: "סוקולוב 38"})
	require.NoError(t, err)

	assert.Equal(t, 2, finder.params.YearsBack)
	assert.Equal(t, 30, finder.params.Radius)
	assert.Equal(t, 100, finder.params.MaxDeals)
	assert.Equal(t, domain.DealTypeSecondHand, finder.params.DealType)
}

func TestSearchParamsOverrides(t *testing.T) {
	finder := &stubFinder{deals: monthlyDeals(3)}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	_, err := svc.FindDeals(context.Background(), SearchRequest{
		Address: "סוקולוב 38", YearsBack: 5, Radius: 100, MaxDeals: 20, DealType: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, finder.params.YearsBack)
	assert.Equal(t, 100, finder.params.Radius)
	assert.Equal(t, 20, finder.params.MaxDeals)
	assert.Equal(t, domain.DealTypeFirstHand, finder.params.DealType)
}

func TestComprehensiveAnalysis(t *testing.T) {
	finder := &stubFinder{deals: monthlyDeals(24)}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	report, err := svc.ComprehensiveAnalysis(context.Background(), SearchRequest{Address: "סוקולוב 38"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, "סוקולוב 38", report.Address)
	assert.Equal(t, 24, report.RawStatistics.TotalDeals)
	assert.Equal(t, 24, report.OutlierReport.TotalDeals)
	assert.NotNil(t, report.Investment)
	assert.Empty(t, report.Warnings)
}

func TestComprehensiveAnalysisWarnsOnThinSample(t *testing.T) {
	// Two deals support statistics but none of the market analytics need
	// less than three valid points
	finder := &stubFinder{deals: monthlyDeals(2)}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	report, err := svc.ComprehensiveAnalysis(context.Background(), SearchRequest{Address: "סוקולוב 38"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.RawStatistics.TotalDeals)
	assert.Nil(t, report.Investment)
	assert.NotEmpty(t, report.Warnings)
}

func TestComprehensiveAnalysisNoDeals(t *testing.T) {
	finder := &stubFinder{deals: nil}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	_, err := svc.ComprehensiveAnalysis(context.Background(), SearchRequest{Address: "סוקולוב 38"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestScreenOutliersOverrides(t *testing.T) {
	svc := NewAnalysisService(&stubFinder{}, nil, testConfig(), nil)
	deals := monthlyDeals(12)

	t.Run("configured defaults", func(t *testing.T) {
		filtered, report, err := svc.ScreenOutliers(deals, "", "")
		require.NoError(t, err)
		assert.Len(t, filtered, 12)
		assert.Equal(t, "iqr", report.MethodUsed)
		assert.Equal(t, outlier.MetricPricePerSqm, report.Parameters.Metric)
	})

	t.Run("method and metric override", func(t *testing.T) {
		_, report, err := svc.ScreenOutliers(deals, outlier.MethodPercent, outlier.MetricAmount)
		require.NoError(t, err)
		assert.Equal(t, "percent", report.MethodUsed)
		assert.Equal(t, outlier.MetricAmount, report.Parameters.Metric)
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		_, _, err := svc.ScreenOutliers(deals, "zscore", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown metric rejected", func(t *testing.T) {
		_, _, err := svc.ScreenOutliers(deals, "", "rooms")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestFilterDealsRejectsBadCriteria(t *testing.T) {
	svc := NewAnalysisService(&stubFinder{}, nil, testConfig(), nil)

	min, max := 100.0, 50.0
	_, err := svc.FilterDeals(nil, domain.FilterCriteria{MinPrice: &min, MaxPrice: &max})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type addressFinder struct {
	byAddress map[string][]domain.Deal
	errs      map[string]error
}

func (f *addressFinder) FindRecentDeals(ctx context.Context, address string, params aggregate.Params) ([]domain.Deal, error) {
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	return f.byAddress[address], nil
}

func pricedDeals(n int, amount float64) []domain.Deal {
	deals := make([]domain.Deal, 0, n)
	base := time.Now().UTC().AddDate(0, -n, 0)
	for i := 0; i < n; i++ {
		d := domain.Deal{
			ID:     fmt.Sprintf("d%d", i),
			Date:   base.AddDate(0, i, 0),
			Amount: amount,
			Area:   80,
		}
		d.ComputePricePerSqm()
		deals = append(deals, d)
	}
	return deals
}

func TestCompareNeighborhoods(t *testing.T) {
	finder := &addressFinder{
		byAddress: map[string][]domain.Deal{
			"הרצל 1 תל אביב": pricedDeals(4, 3000000),
			"ביאליק 5 חולון": pricedDeals(4, 1500000),
		},
		errs: map[string]error{
			"רחוב שלא קיים 9": fmt.Errorf("registry request failed"),
		},
	}
	svc := NewAnalysisService(finder, nil, testConfig(), nil)

	report, err := svc.CompareNeighborhoods(context.Background(), ComparisonRequest{
		Addresses: []string{"ביאליק 5 חולון", "הרצל 1 תל אביב", "רחוב שלא קיים 9"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Compared)
	require.Len(t, report.Results, 3)

	// Ranking covers only searchable addresses, highest average first
	require.Len(t, report.Ranking, 2)
	assert.Equal(t, "הרצל 1 תל אביב", report.Ranking[0].Address)
	assert.Equal(t, "ביאליק 5 חולון", report.Ranking[1].Address)
	assert.Equal(t, 3000000.0, report.Ranking[0].PriceStats["mean"])

	// The failed address keeps its slot in the results with the error set
	assert.Equal(t, "רחוב שלא קיים 9", report.Results[2].Address)
	assert.NotEmpty(t, report.Results[2].Error)
	assert.Zero(t, report.Results[2].TotalDeals)
}

func TestCompareNeighborhoodsNeedsTwoAddresses(t *testing.T) {
	svc := NewAnalysisService(&stubFinder{}, nil, testConfig(), nil)

	_, err := svc.CompareNeighborhoods(context.Background(), ComparisonRequest{
		Addresses: []string{"הרצל 1"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type stubLocator struct {
	point    govmap.Point
	entities json.RawMessage
	err      error
}

func (s *stubLocator) ResolveAddress(ctx context.Context, address string) (govmap.Point, error) {
	if s.err != nil {
		return govmap.Point{}, s.err
	}
	return s.point, nil
}

func (s *stubLocator) BlockParcelAt(ctx context.Context, point govmap.Point) (json.RawMessage, error) {
	return s.entities, nil
}

func TestBlockParcel(t *testing.T) {
	locator := &stubLocator{
		point:    govmap.Point{X: 184391.5, Y: 655467.25},
		entities: json.RawMessage(`[{"gush":"6578","helka":"141"}]`),
	}
	svc := NewAnalysisService(&stubFinder{}, locator, testConfig(), nil)

	parcel, err := svc.BlockParcel(context.Background(), " סוקולוב 38 חולון ")
	require.NoError(t, err)

	assert.Equal(t, "סוקולוב 38 חולון", parcel.Address)
	assert.Equal(t, 184391.5, parcel.X)
	assert.JSONEq(t, `[{"gush":"6578","helka":"141"}]`, string(parcel.Entities))
}

func TestBlockParcelValidation(t *testing.T) {
	svc := NewAnalysisService(&stubFinder{}, &stubLocator{}, testConfig(), nil)

	_, err := svc.BlockParcel(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
