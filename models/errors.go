package models

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, machine-readable error identifier exposed to callers
type ErrorCode string

const (
	CodeMissingParameter    ErrorCode = "MISSING_PARAMETER"
	CodeInvalidTicker       ErrorCode = "INVALID_TICKER"
	CodeInvalidParameter    ErrorCode = "INVALID_PARAMETER"
	CodeMissingCredential   ErrorCode = "MISSING_CREDENTIAL"
	CodeInvalidCredential   ErrorCode = "INVALID_CREDENTIAL"
	CodeInsufficientResults ErrorCode = "INSUFFICIENT_RESULTS"
	CodeTooManyRequests     ErrorCode = "TOO_MANY_REQUESTS"
	CodeProcessingError     ErrorCode = "PROCESSING_ERROR"
)

// AppError is a user-visible failure. Message is safe to show; Err is the
// internal cause and is never rendered to callers.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewAppError creates an AppError
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AsAppError extracts an AppError from err, wrapping anything else as a
// PROCESSING_ERROR so internal causes stay hidden.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(CodeProcessingError, "analysis could not be completed", err)
}
