package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeComputationError = "COMPUTATION_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// Validationf builds a caller-input error. The message must name the
// offending parameter and the rejected value.
func Validationf(format string, args ...interface{}) *AppError {
	return New(CodeValidationError, fmt.Sprintf(format, args...))
}

// Computation wraps an unexpected numerical failure so callers can tell
// "bad input" apart from "internal computation problem".
func Computation(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeComputationError,
		Message: message,
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

// IsValidation reports whether err is a caller-input error.
func IsValidation(err error) bool {
	code := GetCode(err)
	return code == CodeValidationError || code == CodeInvalidInput
}

// IsComputation reports whether err is an internal computation failure.
func IsComputation(err error) bool {
	return GetCode(err) == CodeComputationError
}
