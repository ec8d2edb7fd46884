package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a gamma error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrAlreadyExists     ErrorCode = "ALREADY_EXISTS"     // 409
	ErrInvalidRecord     ErrorCode = "INVALID_RECORD"     // 422
	ErrDatasetUnreadable ErrorCode = "DATASET_UNREADABLE" // 500
	ErrIndexUnavailable  ErrorCode = "INDEX_UNAVAILABLE"  // 503
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// GammaError represents a structured error with code, status, and details.
type GammaError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GammaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GammaError {
	return &GammaError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a structure missing from the dataset.
func NewNotFound(filename string) *GammaError {
	return &GammaError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("structure not found: %s", filename),
		Details: map[string]any{"filename": filename},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *GammaError {
	return &GammaError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewAlreadyExists creates a 409 error when a filename is already taken.
func NewAlreadyExists(filename string) *GammaError {
	return &GammaError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("structure already exists: %s", filename),
		Details: map[string]any{"filename": filename},
	}
}

// NewInvalidRecord creates a 422 error for a record that violates the dataset
// contract (missing or malformed plane key, empty or duplicate filename).
func NewInvalidRecord(filename string, msg string) *GammaError {
	details := map[string]any{}
	if filename != "" {
		details["filename"] = filename
		msg = fmt.Sprintf("%s: %s", filename, msg)
	}
	return &GammaError{
		Code:    ErrInvalidRecord,
		Status:  422,
		Message: msg,
		Details: details,
	}
}

// NewDatasetUnreadable creates an error for a dataset file that cannot be loaded.
func NewDatasetUnreadable(path string, err error) *GammaError {
	msg := fmt.Sprintf("cannot read dataset %s", path)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &GammaError{
		Code:    ErrDatasetUnreadable,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewIndexUnavailable creates a 503 error for operations that need the SQLite index
// when none was opened.
func NewIndexUnavailable() *GammaError {
	return &GammaError{
		Code:    ErrIndexUnavailable,
		Status:  503,
		Message: "index database is not available",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GammaError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GammaError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a GammaError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GammaError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// As extracts a GammaError from err, converting anything else to an internal error.
func As(err error) *GammaError {
	var gErr *GammaError
	if stderrors.As(err, &gErr) {
		return gErr
	}
	return NewInternal(err)
}
