// nadlan-report runs a one-shot deal search and analysis for an address and
// writes the result to stdout or a file (JSON, CSV or XLSX).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"nadlancli/internal/aggregate"
	"nadlancli/internal/config"
	"nadlancli/internal/exporter"
	"nadlancli/internal/govmap"
	"nadlancli/internal/infrastructure"
	"nadlancli/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nadlan-report: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		address   = flag.String("address", "", "address to search (required)")
		yearsBack = flag.Int("years-back", 0, "years of history to search (default from config)")
		radius    = flag.Int("radius", 0, "initial search radius in meters (default from config)")
		maxDeals  = flag.Int("max-deals", 0, "maximum deals to return (default from config)")
		dealType  = flag.Int("deal-type", 2, "deal type: 1=first hand, 2=second hand")
		format    = flag.String("format", "json", "output format: json, csv or xlsx")
		output    = flag.String("output", "", "output file (default stdout; required for xlsx)")
	)
	flag.Parse()

	if *address == "" {
		flag.Usage()
		return fmt.Errorf("missing required -address flag")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = infrastructure.EnsureTraceID(ctx)

	client := govmap.NewClient(cfg.Govmap, logger)
	aggregator := aggregate.NewAggregator(client, logger)
	svc := services.NewAnalysisService(aggregator, client, *cfg, logger)

	report, err := svc.ComprehensiveAnalysis(ctx, services.SearchRequest{
		Address:   *address,
		YearsBack: *yearsBack,
		Radius:    *radius,
		MaxDeals:  *maxDeals,
		DealType:  *dealType,
	})
	if err != nil {
		return err
	}

	switch strings.ToLower(*format) {
	case "json":
		return writeJSON(*output, report)
	case "csv":
		if *output == "" {
			return fmt.Errorf("csv output requires -output")
		}
		return exporter.NewCSVWriter(logger).WriteDeals(*output, report.Deals)
	case "xlsx":
		if *output == "" {
			return fmt.Errorf("xlsx output requires -output")
		}
		return exporter.NewXLSXWriter(logger).WriteReport(*output, report)
	default:
		return fmt.Errorf("unknown format %q (expected json, csv or xlsx)", *format)
	}
}

func writeJSON(path string, report *services.AnalysisReport) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}
