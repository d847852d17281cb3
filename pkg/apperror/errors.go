package apperror

import (
	"fmt"
	"net/http"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string       `json:"error_code"`
	Message    string       `json:"message"`
	HTTPStatus int          `json:"-"`
	Fields     []FieldError `json:"fields,omitempty"`
	Err        error        `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Subscription Configuration ----

func ErrInvalidURL(url string) *AppError {
	return New("INVALID_URL", fmt.Sprintf("webhook URL %q must be a valid https:// URL", url), http.StatusBadRequest)
}

func ErrAlreadyExists() *AppError {
	return New("ALREADY_EXISTS", "An active webhook subscription already exists for this merchant", http.StatusConflict)
}

func ErrWebhookNotFound() *AppError {
	return New("WEBHOOK_NOT_FOUND", "No active webhook subscription configured", http.StatusNotFound)
}

func ErrNotFound(entity string) *AppError {
	return New("NOT_FOUND", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Inbound Gateway ----

func ErrMissingParameters(message string) *AppError {
	return New("MISSING_PARAMETERS", message, http.StatusBadRequest)
}

func ErrMerchantNotFound() *AppError {
	return New("MERCHANT_NOT_FOUND", "Merchant not found", http.StatusNotFound)
}

func ErrMerchantInactive() *AppError {
	return New("MERCHANT_INACTIVE", "Merchant account is not active", http.StatusForbidden)
}

func ErrInvalidSignature() *AppError {
	return New("INVALID_SIGNATURE", "Invalid signature", http.StatusUnauthorized)
}

// ErrInvalidPayload carries one entry per violated field.
func ErrInvalidPayload(fields []FieldError) *AppError {
	e := New("INVALID_PAYLOAD", "Payload validation failed", http.StatusBadRequest)
	e.Fields = fields
	return e
}

// ---- Authentication ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrDatabaseError wraps a persistence failure.
func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// Validation returns a generic 400 validation error.
func Validation(message string) *AppError {
	return New("VALIDATION_ERROR", message, http.StatusBadRequest)
}
