// backend/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// AppError is a pipeline error tagged with a failure kind.
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

// Failure kinds. The first three are input-shape errors and abort a run before any output is produced.
const (
	CodeNoDataset           = "NO_DATASET"
	CodeBadFilename         = "BAD_FILENAME"
	CodeMissingPriorDataset = "MISSING_PRIOR_DATASET"
	CodeLoad                = "LOAD_ERROR"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeSink                = "SINK_ERROR"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeDatabase            = "DATABASE_ERROR"
	CodeBusy                = "BUSY"
	CodeInternal            = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. A nil err stays nil.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a code and a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GetCode returns the code of the outermost AppError in err's chain, or CodeInternal.
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

// IsInputShape reports whether err is one of the fatal input-shape failures.
func IsInputShape(err error) bool {
	switch GetCode(err) {
	case CodeNoDataset, CodeBadFilename, CodeMissingPriorDataset:
		return true
	}
	return false
}
