package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeAdapterFailure    = "ADAPTER_FAILURE"
	CodeExtractionBackend = "EXTRACTION_BACKEND"
	CodeConfig            = "CONFIG_ERROR"
	CodeStore             = "STORE_ERROR"
)

// Common application errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrBackendUnavailable  = errors.New("extraction backend unavailable")
	ErrUnparseableResponse = errors.New("unparseable backend response")
	ErrInvalidPath         = errors.New("invalid field path")
	ErrDatabase            = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func AdapterFailure(message string, cause error) *AppError {
	return NewAppError(CodeAdapterFailure, message, cause)
}

func BackendFailure(message string, cause error) *AppError {
	return NewAppError(CodeExtractionBackend, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
