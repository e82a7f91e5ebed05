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
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInternalServer      = errors.New("internal server error")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// Business errors
	ErrRideNotPending     = errors.New("ride request is no longer pending")
	ErrDriverUnavailable  = errors.New("driver is not available")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrAlreadyTerminal    = errors.New("ride already finished")
	ErrAlreadyRated       = errors.New("ride already rated")
	ErrNotCompleted       = errors.New("ride is not completed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match an APIError against the sentinel it was built from.
func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func wrap(cause error, code, message string, statusCode int) *APIError {
	e := NewAPIError(code, message, statusCode)
	e.cause = cause
	return e
}

// Common API errors
func NotFound(resource string) *APIError {
	return wrap(ErrNotFound, "not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return wrap(ErrBadRequest, "bad_request", message, http.StatusBadRequest)
}

func InvalidInput(message string) *APIError {
	return wrap(ErrBadRequest, "invalid_input", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return wrap(ErrConflict, "conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return wrap(ErrInternalServer, "internal_error", message, http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return wrap(ErrUnauthorized, "unauthorized", message, http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return wrap(ErrForbidden, "forbidden", message, http.StatusForbidden)
}

func IdempotencyConflict() *APIError {
	return wrap(ErrIdempotencyConflict, "idempotency_conflict", "idempotency key already used with different request", http.StatusConflict)
}

func RideNotPending() *APIError {
	return wrap(ErrRideNotPending, "ride_not_pending", "this ride request is no longer pending", http.StatusBadRequest)
}

func DriverUnavailable() *APIError {
	return wrap(ErrDriverUnavailable, "driver_unavailable", "driver is not available to take a ride", http.StatusBadRequest)
}

func InvalidTransition(from, to string) *APIError {
	return wrap(ErrInvalidTransition, "invalid_transition", fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusBadRequest)
}

func AlreadyTerminal(status string) *APIError {
	return wrap(ErrAlreadyTerminal, "already_terminal", fmt.Sprintf("ride is already %s", status), http.StatusBadRequest)
}

func AlreadyRated() *APIError {
	return wrap(ErrAlreadyRated, "already_rated", "you have already rated this ride", http.StatusBadRequest)
}

func NotCompleted() *APIError {
	return wrap(ErrNotCompleted, "not_completed", "only completed rides can be rated", http.StatusBadRequest)
}

func InsufficientFunds() *APIError {
	return wrap(ErrInsufficientFunds, "insufficient_funds", "wallet balance insufficient", http.StatusPaymentRequired)
}

func InvalidCoordinates(message string) *APIError {
	return wrap(ErrInvalidCoordinates, "invalid_input", message, http.StatusBadRequest)
}

// From converts any error into an APIError. Bare sentinels map to their API form,
// everything unrecognised becomes a generic 500.
func From(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound("resource")
	case errors.Is(err, ErrRideNotPending):
		return RideNotPending()
	case errors.Is(err, ErrDriverUnavailable):
		return DriverUnavailable()
	case errors.Is(err, ErrAlreadyRated):
		return AlreadyRated()
	case errors.Is(err, ErrNotCompleted):
		return NotCompleted()
	case errors.Is(err, ErrInsufficientFunds):
		return InsufficientFunds()
	case errors.Is(err, ErrForbidden):
		return Forbidden("forbidden")
	case errors.Is(err, ErrUnauthorized):
		return Unauthorized("unauthorized")
	case errors.Is(err, ErrConflict):
		return Conflict("resource conflict")
	case errors.Is(err, ErrIdempotencyConflict):
		return IdempotencyConflict()
	default:
		return InternalError("internal server error")
	}
}
