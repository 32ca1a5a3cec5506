package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"physiology-rag/internal/contextutil"
	"physiology-rag/internal/service"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	// Check for wrapped errors
	if errors.Is(err, service.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}

	if errors.Is(err, service.ErrRebuildInProgress) {
		writeError(w, http.StatusConflict, "Rebuild already in progress")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	// Default to internal server error
	writeError(w, http.StatusInternalServerError, defaultMsg)
}
