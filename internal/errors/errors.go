// Package errors classifies failures so the commands can map them to the
// right exit behavior: configuration and validation problems are fatal and
// user-actionable, query failures abort the current run, and transient
// database errors are retried by the connection supervisor.
package errors

import (
	"errors"
	"fmt"
)

// Base error types
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnectionFailed = errors.New("connection failed")
	ErrQueryFailed      = errors.New("query failed")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeTransientDB ErrorType = "transient_db"
	ErrorTypeQuery       ErrorType = "query"
)

// OpError is a structured error for aggregation and exporter operations.
type OpError struct {
	Type ErrorType
	Op   string // Operation that failed (e.g., "aggregate", "fetch_row")
	Err  error  // Underlying error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is matching against the base error types.
func (e *OpError) Is(target error) bool {
	if target == nil {
		return false
	}
	switch target {
	case ErrConfiguration:
		return e.Type == ErrorTypeConfig
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrConnectionFailed:
		return e.Type == ErrorTypeTransientDB
	case ErrQueryFailed:
		return e.Type == ErrorTypeQuery
	}
	return errors.Is(e.Err, target)
}

// WrapConfig wraps a configuration error with operation context.
func WrapConfig(op string, err error) error {
	return &OpError{Type: ErrorTypeConfig, Op: op, Err: err}
}

// WrapValidation wraps a malformed-input error with operation context.
func WrapValidation(op string, err error) error {
	return &OpError{Type: ErrorTypeValidation, Op: op, Err: err}
}

// WrapConnection wraps a transient database error with operation context.
func WrapConnection(op string, err error) error {
	return &OpError{Type: ErrorTypeTransientDB, Op: op, Err: err}
}

// WrapQuery wraps a statement execution error with operation context.
func WrapQuery(op string, err error) error {
	return &OpError{Type: ErrorTypeQuery, Op: op, Err: err}
}

// Configf builds a configuration error from a format string.
func Configf(op, format string, args ...any) error {
	return WrapConfig(op, fmt.Errorf(format, args...))
}

// Validationf builds a validation error from a format string.
func Validationf(op, format string, args ...any) error {
	return WrapValidation(op, fmt.Errorf(format, args...))
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsValidationError checks if an error is a malformed-input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransientError checks if an error is a recoverable database error.
func IsTransientError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}
