// Package errors defines the sentinel errors shared across the reranking
// service and maps them to HTTP status codes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")

	// ErrTokenization reports an analyzer failure while building a query.
	ErrTokenization = errors.New("tokenization failed")
	// ErrIndexRead reports a term-vector or search-execution failure.
	ErrIndexRead = errors.New("index read failed")
	// ErrEmptyFeedback reports that no usable expansion terms were found.
	// Rerankers treat it as a fallback, not a failure.
	ErrEmptyFeedback = errors.New("no usable feedback terms")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
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

// Wrap attaches a sentinel and status to cause, keeping both in the chain.
func Wrap(sentinel error, statusCode int, cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", sentinel, cause),
		StatusCode: statusCode,
	}
}

// Is reports whether any error in err's chain matches target. It saves
// callers from importing both this package and the standard errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatusCode returns the status carried by an AppError in err's chain,
// or the status mapped from its sentinel.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTokenization):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexRead), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
