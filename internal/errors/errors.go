package errors

import (
	stderrors "errors"
	"fmt"

	"gridtruth/domain/core"
)

// AppError is the error shape returned at the config, pipeline and CLI
// boundary. Domain packages return sentinel-wrapped errors instead.
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

// Wrap adds context to err. An AppError keeps its code; a malformed-input
// domain error becomes INVALID_INPUT; anything else is INTERNAL_ERROR.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    classify(err),
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

func classify(err error) string {
	var appErr *AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr.Code
	case stderrors.Is(err, core.ErrInvalidInput),
		stderrors.Is(err, core.ErrMissingTime):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrInvalidRegistry):
		return CodeConfigInvalid
	default:
		return CodeInternalError
	}
}

// GetCode returns the code of the outermost AppError in the chain, or
// UNKNOWN when there is none.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeInvalidInput:
		return 2
	case CodeConfigInvalid:
		return 3
	default:
		return 1
	}
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInternalError = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
