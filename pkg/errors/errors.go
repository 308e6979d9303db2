// Package errors defines the error kinds surfaced by the search engine and
// maps them to HTTP status codes for the API layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrStoreFailure        = errors.New("store failure")
	ErrPreconditionMissing = errors.New("precondition missing")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

// Kind names as reported to callers.
const (
	KindNotFound            = "NOT_FOUND"
	KindStoreFailure        = "STORE_FAILURE"
	KindPreconditionMissing = "PRECONDITION_MISSING"
	KindInvalidInput        = "INVALID_INPUT"
	KindInternal            = "INTERNAL"
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// NotFound reports a lookup miss for name.
func NotFound(name string) *AppError {
	return Newf(ErrNotFound, http.StatusNotFound, "no document named %q", name)
}

// StoreFailure wraps an error returned by the document store. The original
// error stays reachable through errors.Is/As.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// Kind returns the kind name for err, or an empty string for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPreconditionMissing):
		return KindPreconditionMissing
	case errors.Is(err, ErrStoreFailure):
		return KindStoreFailure
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrPreconditionMissing):
		return http.StatusConflict
	case errors.Is(err, ErrStoreFailure), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
