// Package errors provides structured errors that map onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeUnauthorized indicates bad credentials (HTTP 401)
	TypeUnauthorized ErrorType = "unauthorized"
	// TypeForbidden indicates the actor may not perform the action (HTTP 403)
	TypeForbidden ErrorType = "forbidden"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
// Fields carries per-field messages for validation failures.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message)
}

// UnauthorizedError creates a new authentication error (HTTP 401).
func UnauthorizedError(message string) *Error {
	return newError(TypeUnauthorized, message)
}

// ForbiddenError creates a new permission error (HTTP 403).
func ForbiddenError(message string) *Error {
	return newError(TypeForbidden, message)
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	e := newError(TypeInternal, message)
	e.Cause = cause
	return e
}

// WithContext adds a context field to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithField attaches a message to an input field (chainable).
func (e *Error) WithField(field, message string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Type    ErrorType           `json:"type"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Context map[string]any      `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Fields:  e.Fields,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// gorm.ErrRecordNotFound becomes a not-found error; anything else that is
// not already an *Error is wrapped as internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError("not found")
	}
	return InternalError("internal server error", err)
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}
