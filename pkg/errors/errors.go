package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates user input that failed validation
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates input that the current state does not accept
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from an external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeStore indicates the storage collaborator failed to persist a record
	ErrorTypeStore ErrorType = "STORE"

	// ErrorTypeRead indicates the storage collaborator failed to list records
	ErrorTypeRead ErrorType = "READ"
)

// Validation sentinels returned by the intake validators. Compare with errors.Is.
var (
	ErrInvalidName = &AppError{
		Type:    ErrorTypeValidation,
		Code:    "INVALID_NAME",
		Message: "Please enter a valid name (minimum 2 characters, no test data)",
	}
	ErrInvalidEmail = &AppError{
		Type:    ErrorTypeValidation,
		Code:    "INVALID_EMAIL",
		Message: "Please enter a valid email address",
	}
	ErrInvalidRating = &AppError{
		Type:    ErrorTypeValidation,
		Code:    "INVALID_RATING",
		Message: "Please choose a rating between 1 and 5 stars",
	}
	ErrInvalidComment = &AppError{
		Type:    ErrorTypeValidation,
		Code:    "INVALID_COMMENT",
		Message: "Please provide meaningful feedback (minimum 5 characters)",
	}
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewStoreError wraps a failure to persist a record
func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStore,
		Code:    "STORE_ERROR",
		Message: message,
		Err:     err,
	}
}

// NewReadError wraps a failure to list records
func NewReadError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRead,
		Code:    "READ_ERROR",
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type anywhere in its chain
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// UserMessage returns the message meant for end users, falling back when err is not an AppError
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
