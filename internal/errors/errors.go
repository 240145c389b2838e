package errors

import (
	"errors"
	"fmt"
)

// PackError is the structured error type for docpack.
// It carries a stable code, a category for reporting, and the underlying
// cause for error chain support.
type PackError struct {
	// Code is the unique error code (e.g., "ERR_303_EXTRACT_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *PackError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PackError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with PackError.
func (e *PackError) Is(target error) bool {
	if t, ok := target.(*PackError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *PackError) WithDetail(key, value string) *PackError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new PackError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PackError {
	return &PackError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new PackError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *PackError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a PackError from an existing error.
// The error's message becomes the PackError message.
func Wrap(code string, err error) *PackError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var pe *PackError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCode extracts the error code from a PackError anywhere in the chain.
// Returns empty string if no PackError is found.
func GetCode(err error) string {
	var pe *PackError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category from a PackError anywhere in the chain.
// Returns empty string if no PackError is found.
func GetCategory(err error) Category {
	var pe *PackError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}
