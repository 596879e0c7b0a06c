package apperrors

import (
	"errors"

	"health-registry-server/internal/validation"
)

// Error kinds. Services wrap them in *Error; handlers match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Error is a classified, user-facing failure.
type Error struct {
	Kind    error
	Message string
	Fields  validation.FieldErrors
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error         { return newError(ErrNotFound, message) }
func InvalidState(message string) *Error     { return newError(ErrInvalidState, message) }
func CapacityExceeded(message string) *Error { return newError(ErrCapacityExceeded, message) }
func Conflict(message string) *Error         { return newError(ErrConflict, message) }
func Unauthorized(message string) *Error     { return newError(ErrUnauthorized, message) }
func Forbidden(message string) *Error        { return newError(ErrForbidden, message) }

// Validation wraps a set of field errors.
func Validation(fields validation.FieldErrors) *Error {
	return &Error{Kind: ErrValidation, Message: "Validation error", Fields: fields}
}

// WithField attaches the message to a single field.
func (e *Error) WithField(field string) *Error {
	e.Fields = validation.FieldErrors{field: {e.Message}}
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
