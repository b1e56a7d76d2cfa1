// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; the HTTP layer (handler.writeError) is the
// only place that turns them into status codes. Match with errors.Is against
// the sentinels and use errors.As to pull out the *AppError for its message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("payload too large")
	ErrUnsupported  = errors.New("unsupported media type")
)

type AppError struct {
	Err     error             // actual error
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Fields  map[string]string // Optional: per-field messages for multi-field validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundBy is NotFound for lookups by a field other than the id, such as
// a slug.
func NotFoundBy(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with %s %s", resource, field, value),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Invalid reports several field failures at once. Message joins them so
// callers that only read Error() still see something useful.
func Invalid(message string, fields map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Fields:  fields,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// AlreadyExists is the Conflict variant used when a unique key (rather than
// an id) collides, e.g. a duplicate email.
func AlreadyExists(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized wraps one of the auth failure kinds. The kind stays in the
// chain for logging; clients only ever see the generic 401 body.
func Unauthorized(kind error) *AppError {
	if kind == nil {
		kind = ErrUnauthorized
	}
	return &AppError{
		Err:     kind,
		Message: kind.Error(),
	}
}

// TooLarge marks an upload that exceeds the configured ceiling (413).
func TooLarge(limit int64) *AppError {
	return &AppError{
		Err:     ErrTooLarge,
		Message: fmt.Sprintf("file exceeds the %d byte limit", limit),
	}
}

// Unsupported marks an upload whose MIME type is not allowed (415).
func Unsupported(mime string) *AppError {
	return &AppError{
		Err:     ErrUnsupported,
		Message: fmt.Sprintf("file type %q is not allowed", mime),
	}
}
