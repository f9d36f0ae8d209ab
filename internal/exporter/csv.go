// Package exporter writes deal sets and analysis reports to CSV, XLSX and
// JSON files for offline use.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"nadlancli/pkg/contracts/domain"
)

// dealHeaders is the column layout shared by the CSV and XLSX writers
var dealHeaders = []string{
	"deal_id", "deal_date", "deal_amount", "asset_area", "rooms", "floor",
	"property_type", "settlement", "neighborhood", "street", "house_number",
	"source", "source_polygon_id", "price_per_sqm",
}

// CSVWriter exports deals as CSV files
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteDeals writes deals to a CSV file. The file starts with a UTF-8 BOM
// so Excel renders the Hebrew fields correctly.
func (w *CSVWriter) WriteDeals(path string, deals []domain.Deal) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(dealHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for _, deal := range deals {
		if err := writer.Write(dealRecord(deal)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	w.logger.Info("deals exported",
		slog.String("path", path),
		slog.Int("deals", len(deals)),
	)
	return nil
}

// dealRecord renders one deal as a CSV row
func dealRecord(d domain.Deal) []string {
	date := ""
	if !d.Date.IsZero() {
		date = d.Date.Format("2006-01-02")
	}
	pps := ""
	if d.PricePerSqm != nil {
		pps = strconv.FormatFloat(*d.PricePerSqm, 'f', 2, 64)
	}
	return []string{
		d.ID,
		date,
		strconv.FormatFloat(d.Amount, 'f', -1, 64),
		formatOptionalFloat(d.Area),
		formatOptionalFloat(d.Rooms),
		d.Floor,
		d.PropertyType,
		d.Settlement,
		d.Neighborhood,
		d.Street,
		d.HouseNumber,
		d.Source,
		d.SourcePolygon,
		pps,
	}
}

// formatOptionalFloat renders zero (missing) values as empty cells
func formatOptionalFloat(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
