package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind represents the category of an API error. The kinds partition
// every failure the orchestrator can surface: validation, missing records,
// collisions, failures of the two external collaborators, and deadline
// overruns.
type ErrorKind string

const (
	ErrorKindInvalidRequest    ErrorKind = "invalid_request"
	ErrorKindNotFound          ErrorKind = "not_found"
	ErrorKindAlreadyExists     ErrorKind = "already_exists"
	ErrorKindEngineFailure     ErrorKind = "engine_failure"
	ErrorKindRepositoryFailure ErrorKind = "repository_failure"
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindInternal          ErrorKind = "internal"
)

// APIError represents a structured error with kind, code, param, and message.
type APIError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Kind, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/errors.As.
func (e *APIError) Unwrap() error { return e.cause }

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error envelope.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Kind:    ErrorKindInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for sandboxes that cannot be found.
func NewNotFoundError(id string) *APIError {
	return &APIError{
		Kind:    ErrorKindNotFound,
		Message: fmt.Sprintf("sandbox %s not found", id),
	}
}

// NewAlreadyExistsError creates an APIError for slug, name, or repository
// collisions.
func NewAlreadyExistsError(message string) *APIError {
	return &APIError{
		Kind:    ErrorKindAlreadyExists,
		Message: message,
	}
}

// NewEngineError creates an APIError for a failed container-engine call,
// wrapping the engine's error. The op names the engine verb that failed.
func NewEngineError(op string, err error) *APIError {
	return &APIError{
		Kind:    ErrorKindEngineFailure,
		Code:    op,
		Message: fmt.Sprintf("engine: %s: %v", op, err),
		cause:   err,
	}
}

// NewRepositoryError creates an APIError for a failed git-backend call,
// wrapping the backend's error.
func NewRepositoryError(op string, err error) *APIError {
	return &APIError{
		Kind:    ErrorKindRepositoryFailure,
		Code:    op,
		Message: fmt.Sprintf("repository: %s: %v", op, err),
		cause:   err,
	}
}

// NewTimeoutError creates an APIError for an operation that exceeded its
// grace period.
func NewTimeoutError(op string, limit time.Duration) *APIError {
	return &APIError{
		Kind:    ErrorKindTimeout,
		Code:    op,
		Message: fmt.Sprintf("timeout: %s did not complete within %s", op, limit),
	}
}

// NewInternalError creates an APIError for internal failures.
func NewInternalError(message string) *APIError {
	return &APIError{
		Kind:    ErrorKindInternal,
		Message: message,
	}
}

// KindOf classifies an arbitrary error into an ErrorKind. Non-APIError
// values classify as internal.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrorKindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
