package models

import (
	"errors"
	"fmt"
)

// ErrorCode discriminates the domain error taxonomy. The HTTP layer maps
// codes to status codes exhaustively; nothing below the handlers should ever
// return an untyped error to a caller.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeMigration  ErrorCode = "migration"
	ErrCodeInternal   ErrorCode = "internal"
)

// DomainError is the error value crossing the repository and service
// boundaries. Message is safe to show to API clients except for
// ErrCodeInternal, whose detail lives only on Err and belongs in logs.
type DomainError struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a missing required field by name.
func NewValidationError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Field:   field,
		Message: fmt.Sprintf("Missing required field: %s", field),
	}
}

// NewNotFoundError reports that a required resource does not exist.
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewConflictError reports a uniqueness or state conflict with a
// caller-facing message.
func NewConflictError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// NewMigrationError reports a failed migration script.
func NewMigrationError(script string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeMigration,
		Message: fmt.Sprintf("migration %s failed", script),
		Err:     err,
	}
}

// NewInternalError wraps an unexpected storage failure. The cause is kept
// for logging and never surfaced in responses.
func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "internal storage error",
		Err:     err,
	}
}

func codeIs(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

func IsValidation(err error) bool { return codeIs(err, ErrCodeValidation) }
func IsNotFound(err error) bool   { return codeIs(err, ErrCodeNotFound) }
func IsConflict(err error) bool   { return codeIs(err, ErrCodeConflict) }
func IsMigration(err error) bool  { return codeIs(err, ErrCodeMigration) }
