package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"nadlancli/internal/services"
	"nadlancli/pkg/contracts/domain"
)

// XLSXWriter exports analysis reports as Excel workbooks with separate
// sheets for deals and summary statistics
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates an XLSX writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// WriteReport writes a full analysis report to an Excel workbook
func (w *XLSXWriter) WriteReport(path string, report *services.AnalysisReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeDealsSheet(f, report.Deals); err != nil {
		return err
	}
	if err := w.writeSummarySheet(f, report); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("report exported",
		slog.String("path", path),
		slog.String("report_id", report.ReportID),
		slog.Int("deals", len(report.Deals)),
	)
	return nil
}

func (w *XLSXWriter) writeDealsSheet(f *excelize.File, deals []domain.Deal) error {
	const sheet = "Deals"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create deals sheet: %w", err)
	}

	for col, header := range dealHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, deal := range deals {
		record := dealRecord(deal)
		for col, value := range record {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write deal row %d: %w", row+1, err)
			}
		}
	}
	return nil
}

func (w *XLSXWriter) writeSummarySheet(f *excelize.File, report *services.AnalysisReport) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][2]any{
		{"report_id", report.ReportID},
		{"address", report.Address},
		{"generated_at", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"total_deals", report.RawStatistics.TotalDeals},
		{"outliers_removed", report.OutlierReport.OutliersRemoved},
	}
	rows = append(rows, statRows("price", report.FilteredStatistics.PriceStats)...)
	rows = append(rows, statRows("price_per_sqm", report.FilteredStatistics.PricePerSqmStats)...)

	if report.Activity != nil {
		rows = append(rows,
			[2]any{"activity_score", report.Activity.ActivityScore},
			[2]any{"activity_level", report.Activity.ActivityLevel},
		)
	}
	if report.Liquidity != nil {
		rows = append(rows,
			[2]any{"velocity_score", report.Liquidity.VelocityScore},
			[2]any{"liquidity_rating", report.Liquidity.LiquidityRating},
		)
	}
	if report.Investment != nil {
		rows = append(rows,
			[2]any{"investment_score", report.Investment.InvestmentScore},
			[2]any{"price_trend", report.Investment.PriceTrend},
			[2]any{"data_quality", report.Investment.DataQuality},
		)
	}
	for _, warning := range report.Warnings {
		rows = append(rows, [2]any{"warning", warning})
	}

	for i, row := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheet, keyCell, row[0]); err != nil {
			return fmt.Errorf("write summary key: %w", err)
		}
		if err := f.SetCellValue(sheet, valueCell, row[1]); err != nil {
			return fmt.Errorf("write summary value: %w", err)
		}
	}
	return nil
}

// statRows flattens a metric stats map into labeled rows, keys sorted
func statRows(prefix string, stats map[string]float64) [][2]any {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][2]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]any{prefix + "_" + k, stats[k]})
	}
	return rows
}
