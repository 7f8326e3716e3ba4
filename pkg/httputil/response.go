package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartfill/smartfill/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents an API error
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(resp)
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(resp)
}

// ErrorFromDomain converts a domain error to HTTP response
func ErrorFromDomain(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		JSONError(w, domainErrorToStatus(domainErr), domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Metadata)
		return
	}

	// Default to internal error
	JSONError(w, http.StatusInternalServerError, domain.ErrCodeInternal, "Internal server error", nil)
}

func domainErrorToStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeValidation, domain.ErrCodeBadRequest:
		return http.StatusBadRequest
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes JSON from request body, rejecting unknown fields and
// bodies larger than maxBytes when maxBytes is positive.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.ValidationError("body", "request body is required")
	}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return domain.ValidationError("body", "invalid JSON: "+err.Error())
	}

	return nil
}
