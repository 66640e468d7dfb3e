// Package apperror defines the typed errors shared by every layer.
//
// Services return *AppError values wrapping one of the sentinel kinds below.
// The HTTP layer maps the kind to a status code (see handler/response.go);
// nothing below the handler knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, message),
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

// Unauthorized means the caller could not be identified: the token was
// missing, malformed, expired or rejected by the identity provider.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Configuration reports a required setting that is absent or unparseable.
// item names the setting (usually the environment variable) so operators
// can fix it without reading code.
func Configuration(item string, cause error) *AppError {
	if cause == nil {
		return &AppError{
			Err:     ErrConfiguration,
			Message: fmt.Sprintf("%s is not configured", item),
			Field:   item,
		}
	}
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrConfiguration, cause),
		Message: fmt.Sprintf("%s: %v", item, cause),
		Field:   item,
	}
}
