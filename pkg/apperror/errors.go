package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrConflict          = errors.New("conflict")
	ErrDependency        = errors.New("dependency failure")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) error {
	return New(http.StatusNotFound, message, ErrNotFound)
}

func Forbidden(message string) error {
	return New(http.StatusForbidden, message, ErrForbidden)
}

func Unauthorized(message string) error {
	return New(http.StatusUnauthorized, message, ErrUnauthorized)
}

func InvalidInput(message string) error {
	return New(http.StatusBadRequest, message, ErrInvalidInput)
}

func InvalidState(message string) error {
	return New(http.StatusBadRequest, message, ErrInvalidState)
}

func InvalidOperation(message string) error {
	return New(http.StatusBadRequest, message, ErrInvalidOperation)
}

func Conflict(message string) error {
	return New(http.StatusConflict, message, ErrConflict)
}

// Dependency wraps an unexpected datastore or collaborator failure. The
// message shown to callers stays generic; op and cause are kept for logs.
func Dependency(op string, cause error) error {
	return New(http.StatusInternalServerError, "internal server error", fmt.Errorf("%s: %w: %w", op, ErrDependency, cause))
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidOperation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDependency), errors.Is(err, ErrInternal):
		return "DEPENDENCY_FAILURE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInvalidOperation):
		return "INVALID_OPERATION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrRateLimitExceeded):
		return "RATE_LIMITED"
	}
	return "INTERNAL"
}

// PublicMessage is the text safe to show to API callers.
func PublicMessage(err error) string {
	if MapErrorToStatus(err) >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
