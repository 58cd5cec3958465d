package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Role    string `json:"role,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	write(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	write(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// Common error codes
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Convenience functions for common errors
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

// FromError maps a service error onto its status code. Forbidden responses
// carry the caller's own role; store failures are logged and reported
// without their cause.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var access *domain.AccessError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteErrorWithDetails(w, http.StatusUnauthorized, "Unauthorized Access!", CodeUnauthorized, err.Error())
	case errors.As(err, &access):
		write(w, http.StatusForbidden, ErrorResponse{
			Error:   "Forbidden Access",
			Code:    CodeForbidden,
			Details: access.Reason,
			Role:    string(access.Role),
		})
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden Access", CodeForbidden)
	case errors.Is(err, domain.ErrInvalidInput):
		WriteErrorWithDetails(w, http.StatusBadRequest, "Invalid input", CodeInvalidInput, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteErrorWithDetails(w, http.StatusConflict, "Invalid status transition", CodeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteErrorWithDetails(w, http.StatusNotFound, "Not found", CodeNotFound, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		InternalError(w, "Internal server error")
	}
}
