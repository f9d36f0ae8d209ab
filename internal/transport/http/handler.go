package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "nadlancli/internal/errors"
	"nadlancli/internal/outlier"
	"nadlancli/internal/services"
	"nadlancli/pkg/contracts/domain"
)

// APIHandler serves the deal search and analysis endpoints
type APIHandler struct {
	svc      *services.AnalysisService
	validate *validator.Validate
	errors   *apierrors.ErrorHandler
	logger   *slog.Logger
}

// NewAPIHandler creates the API handler
func NewAPIHandler(svc *services.AnalysisService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{
		svc:      svc,
		validate: validator.New(),
		errors:   apierrors.NewErrorHandler(logger),
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// SearchPayload is the request body for deal search. Criteria, when given,
// are applied to the aggregated deals before the response is built.
type SearchPayload struct {
	services.SearchRequest
	Criteria *domain.FilterCriteria `json:"criteria,omitempty"`
}

// SearchResponse is the deal search response body
type SearchResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Deals   []domain.Deal `json:"deals"`
}

// AnalysisResponse wraps a full analysis report
type AnalysisResponse struct {
	Success bool                     `json:"success"`
	Report  *services.AnalysisReport `json:"report"`
}

// HealthResponse is the health endpoint body
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports service liveness
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok"})
}

// SearchDeals runs the aggregation search and optional criteria filtering
func (h *APIHandler) SearchDeals(w http.ResponseWriter, r *http.Request) {
	var payload SearchPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(payload.SearchRequest); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return
	}

	deals, err := h.svc.FindDeals(r.Context(), payload.SearchRequest)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	if payload.Criteria != nil {
		deals, err = h.svc.FilterDeals(deals, *payload.Criteria)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
	}

	render.JSON(w, r, SearchResponse{Success: true, Count: len(deals), Deals: deals})
}

// Analyze runs the comprehensive analysis pipeline for an address
func (h *APIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var payload SearchPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(payload.SearchRequest); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return
	}

	report, err := h.svc.ComprehensiveAnalysis(r.Context(), payload.SearchRequest)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, AnalysisResponse{Success: true, Report: report})
}

// FilterPayload carries a deal set and the criteria to apply to it
type FilterPayload struct {
	Deals    []domain.Deal         `json:"deals"`
	Criteria domain.FilterCriteria `json:"criteria"`
}

// FilterDeals applies criteria to a caller-supplied deal set
func (h *APIHandler) FilterDeals(w http.ResponseWriter, r *http.Request) {
	var payload FilterPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	deals, err := h.svc.FilterDeals(payload.Deals, payload.Criteria)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, SearchResponse{Success: true, Count: len(deals), Deals: deals})
}

// DealSetPayload carries a caller-supplied deal set for the stateless
// analysis endpoints. WindowMonths restricts activity and liquidity to a
// trailing window; zero means no restriction.
type DealSetPayload struct {
	Deals        []domain.Deal `json:"deals"`
	WindowMonths int           `json:"window_months,omitempty" validate:"omitempty,min=1,max=600"`
}

// StatisticsResponse wraps descriptive statistics over a deal set
type StatisticsResponse struct {
	Success    bool                  `json:"success"`
	Statistics domain.DealStatistics `json:"statistics"`
}

// Statistics computes descriptive statistics over a caller-supplied deal set
func (h *APIHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	var payload DealSetPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	render.JSON(w, r, StatisticsResponse{Success: true, Statistics: h.svc.Statistics(payload.Deals)})
}

// OutlierPayload carries a deal set plus optional method and metric
// overrides for outlier screening
type OutlierPayload struct {
	Deals  []domain.Deal `json:"deals"`
	Method string        `json:"method,omitempty"`
	Metric string        `json:"metric,omitempty"`
}

// OutlierResponse carries the screened deals and the removal report
type OutlierResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Deals   []domain.Deal  `json:"deals"`
	Report  outlier.Report `json:"report"`
}

// ScreenOutliers runs outlier screening on a caller-supplied deal set
func (h *APIHandler) ScreenOutliers(w http.ResponseWriter, r *http.Request) {
	var payload OutlierPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	deals, report, err := h.svc.ScreenOutliers(payload.Deals,
		outlier.Method(payload.Method), outlier.Metric(payload.Metric))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, OutlierResponse{Success: true, Count: len(deals), Deals: deals, Report: report})
}

// ActivityResponse wraps a market activity score
type ActivityResponse struct {
	Success  bool                        `json:"success"`
	Activity *domain.MarketActivityScore `json:"activity"`
}

// MarketActivity computes the activity score over a caller-supplied deal set
func (h *APIHandler) MarketActivity(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeDealSet(w, r)
	if !ok {
		return
	}

	activity, err := h.svc.MarketActivity(payload.Deals, payload.WindowMonths)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, ActivityResponse{Success: true, Activity: activity})
}

// LiquidityResponse wraps liquidity metrics
type LiquidityResponse struct {
	Success   bool                     `json:"success"`
	Liquidity *domain.LiquidityMetrics `json:"liquidity"`
}

// MarketLiquidity computes liquidity metrics over a caller-supplied deal set
func (h *APIHandler) MarketLiquidity(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeDealSet(w, r)
	if !ok {
		return
	}

	liquidity, err := h.svc.MarketLiquidity(payload.Deals, payload.WindowMonths)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, LiquidityResponse{Success: true, Liquidity: liquidity})
}

// InvestmentResponse wraps an investment analysis
type InvestmentResponse struct {
	Success    bool                       `json:"success"`
	Investment *domain.InvestmentAnalysis `json:"investment"`
}

// InvestmentPotential computes investment metrics over a caller-supplied
// deal set
func (h *APIHandler) InvestmentPotential(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeDealSet(w, r)
	if !ok {
		return
	}

	investment, err := h.svc.InvestmentPotential(payload.Deals)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, InvestmentResponse{Success: true, Investment: investment})
}

// ComparisonResponse wraps a multi-address comparison report
type ComparisonResponse struct {
	Success bool                       `json:"success"`
	Report  *services.ComparisonReport `json:"report"`
}

// CompareNeighborhoods runs the deal search for several addresses and ranks
// the markets by average price
func (h *APIHandler) CompareNeighborhoods(w http.ResponseWriter, r *http.Request) {
	var payload services.ComparisonRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return
	}

	report, err := h.svc.CompareNeighborhoods(r.Context(), payload)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, ComparisonResponse{Success: true, Report: report})
}

// ParcelRequest is the request body for a cadastral lookup
type ParcelRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

// ParcelResponse wraps a cadastral lookup result
type ParcelResponse struct {
	Success bool                 `json:"success"`
	Parcel  *services.ParcelInfo `json:"parcel"`
}

// BlockParcel resolves an address and returns the block/parcel entities at
// its coordinate
func (h *APIHandler) BlockParcel(w http.ResponseWriter, r *http.Request) {
	var payload ParcelRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return
	}

	parcel, err := h.svc.BlockParcel(r.Context(), payload.Address)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, ParcelResponse{Success: true, Parcel: parcel})
}

// decodeDealSet decodes and validates a deal-set payload, writing the error
// response itself on failure
func (h *APIHandler) decodeDealSet(w http.ResponseWriter, r *http.Request) (DealSetPayload, bool) {
	var payload DealSetPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return payload, false
	}
	return payload, true
}

// validationError maps validator failures to field-level API errors
func validationError(err error) error {
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}
	fields := make([]apierrors.ValidationError, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fe.Tag(),
		})
	}
	return apierrors.NewValidationErrors(fields)
}
