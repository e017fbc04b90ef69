package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("resource conflict")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPersistence         = errors.New("persistence failure")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// Dispatch errors
	ErrQuoteExpired      = errors.New("quote expired")
	ErrQuoteInvalid      = errors.New("quote invalid")
	ErrAlreadyMatched    = errors.New("ride request already matched")
	ErrDriverUnavailable = errors.New("driver unavailable")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`

	err error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel (and for persistence failures, the storage
// error) so callers can match with errors.Is.
func (e *APIError) Unwrap() error {
	return e.err
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func newSentinelError(sentinel error, code, message string, statusCode int) *APIError {
	e := NewAPIError(code, message, statusCode)
	e.err = sentinel
	return e
}

// Common API errors
func NotFound(resource string) *APIError {
	return newSentinelError(ErrNotFound, "not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func InvalidArgument(message string) *APIError {
	return newSentinelError(ErrInvalidArgument, "invalid_argument", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return newSentinelError(ErrConflict, "conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return NewAPIError("internal_error", message, http.StatusInternalServerError)
}

func IdempotencyConflict() *APIError {
	return newSentinelError(ErrIdempotencyConflict, "idempotency_conflict", "idempotency key already used with different request", http.StatusConflict)
}

func QuoteExpired() *APIError {
	return newSentinelError(ErrQuoteExpired, "quote_expired", "this quote has expired, fetch quotes again", http.StatusGone)
}

func QuoteInvalid(message string) *APIError {
	return newSentinelError(ErrQuoteInvalid, "quote_invalid", message, http.StatusConflict)
}

func AlreadyMatched() *APIError {
	return newSentinelError(ErrAlreadyMatched, "already_matched", "this ride request has already been matched, the offer was withdrawn", http.StatusConflict)
}

func DriverUnavailable() *APIError {
	return newSentinelError(ErrDriverUnavailable, "driver_unavailable", "the driver for this quote is no longer available", http.StatusConflict)
}

func InvalidTransition(from, to string) *APIError {
	return newSentinelError(ErrInvalidTransition, "invalid_transition", fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusConflict)
}

// Persistence wraps a storage-layer error raised while performing op.
func Persistence(op string, err error) *APIError {
	e := NewAPIError("persistence_failure", fmt.Sprintf("failed to %s", op), http.StatusInternalServerError)
	e.err = fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	return e
}

// Cause returns the underlying error of a persistence failure for logging.
func Cause(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.err != nil {
		return apiErr.err
	}
	return err
}
