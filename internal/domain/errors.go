package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes for categorization
const (
	// Client errors (4xx)
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeBadRequest  = "BAD_REQUEST"

	// Server errors (5xx)
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeExternalAPI    = "EXTERNAL_API_ERROR"
	ErrCodeServiceUnavail = "SERVICE_UNAVAILABLE"

	// Business logic errors
	ErrCodeResourceLoad = "RESOURCE_LOAD_FAILED"
	ErrCodePageParse    = "PAGE_PARSE_FAILED"
)

// AppError is the base error type for infrastructure failures surfaced over HTTP
type AppError struct {
	// Error code for programmatic handling
	Code string `json:"code"`

	// Human-readable message
	Message string `json:"message"`

	// HTTP status code
	HTTPStatus int `json:"-"`

	// Original error (for error wrapping)
	Cause error `json:"-"`

	// Metadata for additional context
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamp when error occurred
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ToJSON serializes the error to JSON
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewError creates a new AppError
func NewError(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now().UTC(),
	}
}

func ErrStore(err error) *AppError {
	return NewError(ErrCodeStore, "Profile store error", http.StatusInternalServerError).
		WithCause(err)
}

func ErrExternalAPI(service string, err error) *AppError {
	return NewError(ErrCodeExternalAPI, fmt.Sprintf("External API error: %s", service), http.StatusBadGateway).
		WithCause(err).
		WithMetadata("service", service)
}

func ErrServiceUnavailable(service string) *AppError {
	return NewError(ErrCodeServiceUnavail, fmt.Sprintf("Service unavailable: %s", service), http.StatusServiceUnavailable).
		WithMetadata("service", service)
}

func ErrResourceLoad(resource string, err error) *AppError {
	return NewError(ErrCodeResourceLoad, fmt.Sprintf("Failed to load resource: %s", resource), http.StatusInternalServerError).
		WithCause(err).
		WithMetadata("resource", resource)
}

func ErrPageParse(err error) *AppError {
	return NewError(ErrCodePageParse, "Failed to parse page HTML", http.StatusUnprocessableEntity).
		WithCause(err)
}

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// DomainError is a structured error for domain operations
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for error comparison
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel domain errors (used with errors.Is)
var (
	ErrNotFoundVal     = &DomainError{Code: ErrCodeNotFound, Message: "not found"}
	ErrInvalidInputVal = &DomainError{Code: ErrCodeValidation, Message: "invalid input"}
)

// NotFoundError creates a not found domain error
func NotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
		Err:     ErrNotFoundVal,
	}
}

// ValidationError creates a validation domain error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
		Err:     ErrInvalidInputVal,
	}
}

// IsValidationError reports whether err is a validation failure
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrCodeValidation
	}
	return false
}
