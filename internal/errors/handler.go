package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"nadlancli/pkg/contracts/domain"
)

// ErrorHandler provides centralized error handling for HTTP handlers
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError maps any error to a structured response and renders it
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, NewErrorResponse(h.toAPIError(err)))
}

// toAPIError converts any error to a structured APIError
func (h *ErrorHandler) toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return New(http.StatusGatewayTimeout, "TIMEOUT", "The request took too long to process")
	case errors.Is(err, domain.ErrInsufficientData):
		return InsufficientDataError(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return InvalidRequestWithError(err)
	case errors.Is(err, domain.ErrNoResults):
		return NewWithDetails(http.StatusNotFound, "ADDRESS_NOT_FOUND", "No registry match for address", err.Error())
	default:
		return ErrInternalServer
	}
}
