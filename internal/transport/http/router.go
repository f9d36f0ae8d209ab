// Package http exposes the deal search and analysis operations over a JSON
// API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nadlancli/internal/config"
	"nadlancli/internal/middleware"
	"nadlancli/internal/services"
)

// NewRouter builds the HTTP router with the full middleware chain
func NewRouter(svc *services.AnalysisService, cfg config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.NewRateLimiter(cfg.Govmap.RequestsPerSecond*4, 10, logger).Handler)

	handler := NewAPIHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Post("/deals/search", handler.SearchDeals)
		r.Post("/deals/filter", handler.FilterDeals)
		r.Post("/deals/outliers", handler.ScreenOutliers)
		r.Post("/statistics", handler.Statistics)
		r.Post("/market/activity", handler.MarketActivity)
		r.Post("/market/liquidity", handler.MarketLiquidity)
		r.Post("/market/investment", handler.InvestmentPotential)
		r.Post("/analysis", handler.Analyze)
		r.Post("/comparison", handler.CompareNeighborhoods)
		r.Post("/parcel", handler.BlockParcel)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
