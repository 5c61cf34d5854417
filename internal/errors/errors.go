package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ccp error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrDuplicateKey       ErrorCode = "DUPLICATE_KEY"       // 409
	ErrConflict           ErrorCode = "CONFLICT"            // 409
	ErrConfigMissing      ErrorCode = "CONFIG_MISSING"      // 500
	ErrCorruptAggregate   ErrorCode = "CORRUPT_AGGREGATE"   // 500
	ErrSerialization      ErrorCode = "SERIALIZATION_ERROR" // 500
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE" // 503
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// CcpError represents a structured error with code, status, and details.
type CcpError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is never rendered to callers
	// of the MCP or CLI surfaces.
	Err error
}

// Error implements the error interface.
func (e *CcpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CcpError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CcpError {
	return &CcpError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a collection lookup with no match.
func NewNotFound(collection, identifier string) *CcpError {
	return &CcpError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", collection, identifier),
		Details: map[string]any{"collection": collection, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file.
func NewFileNotFound(path string) *CcpError {
	return &CcpError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateKey creates a 409 error for an insert collision.
func NewDuplicateKey(collection, key string) *CcpError {
	return &CcpError{
		Code:    ErrDuplicateKey,
		Status:  409,
		Message: fmt.Sprintf("%s already contains key %q", collection, key),
		Details: map[string]any{"collection": collection, "key": key},
	}
}

// NewConflict creates a 409 error for lost compare-and-swap races.
func NewConflict(msg string) *CcpError {
	return &CcpError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewConfigMissing creates an error for an absent configuration record.
func NewConfigMissing(id string) *CcpError {
	return &CcpError{
		Code:    ErrConfigMissing,
		Status:  500,
		Message: fmt.Sprintf("configuration record %q is missing; run init", id),
		Details: map[string]any{"id": id},
	}
}

// NewCorruptAggregate creates an error for an aggregate file that exists but
// cannot be parsed.
func NewCorruptAggregate(path string, err error) *CcpError {
	return &CcpError{
		Code:    ErrCorruptAggregate,
		Status:  500,
		Message: fmt.Sprintf("aggregate file exists but is not valid: %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewSerialization creates an error for malformed persisted bytes.
func NewSerialization(err error) *CcpError {
	msg := "malformed document"
	if err != nil {
		msg = err.Error()
	}
	return &CcpError{
		Code:    ErrSerialization,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewStorageUnavailable creates a 503 error for I/O or database failures.
func NewStorageUnavailable(err error) *CcpError {
	msg := "storage unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &CcpError{
		Code:    ErrStorageUnavailable,
		Status:  503,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CcpError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CcpError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is a CcpError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CcpError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first CcpError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var cErr *CcpError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ErrInternal
}
