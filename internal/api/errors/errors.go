package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "transcribe4all/internal/app/errors"
)

// ErrorKind represents different types of API errors
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindInternal           ErrorKind = "internal"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindBadRequest         ErrorKind = "bad_request"
)

// APIError represents a structured API error response
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Code      string            `json:"code,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error kind
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: message,
		Details: fields,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *APIError {
	return &APIError{
		Kind:    KindInternal,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Kind:    KindServiceUnavailable,
		Message: message,
	}
}

// FromError maps application errors onto API errors. Errors without a known
// kind become internal errors whose message does not leak the cause.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case stderrors.Is(err, apperrors.ErrInputNotFound):
		return &APIError{Kind: KindNotFound, Message: err.Error(), Code: "input_not_found"}
	case stderrors.Is(err, apperrors.ErrInputUnreadable):
		return &APIError{Kind: KindBadRequest, Message: err.Error(), Code: "input_unreadable"}
	case stderrors.Is(err, apperrors.ErrEngineNotFound):
		return &APIError{Kind: KindBadRequest, Message: err.Error(), Code: "engine_not_found"}
	case stderrors.Is(err, apperrors.ErrRecognizerInit):
		return &APIError{Kind: KindServiceUnavailable, Message: err.Error(), Code: "recognizer_init"}
	case stderrors.Is(err, apperrors.ErrDatabaseConnection), stderrors.Is(err, apperrors.ErrQueryFailed):
		return &APIError{Kind: KindServiceUnavailable, Message: "run history unavailable", Code: "history"}
	default:
		return NewInternalError("Internal server error")
	}
}
