package service

import "errors"

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNetworkFailure     = errors.New("network failure")
	ErrValidationFailure  = errors.New("validation failure")
	ErrResourceTooLarge   = errors.New("resource too large")
	ErrPreviewUnavailable = errors.New("preview unavailable")
	ErrRetryExhausted     = errors.New("retry exhausted")
	ErrNotFound           = errors.New("not found")
	ErrInternal           = errors.New("internal")
)

// ServiceError wraps a sentinel error with a specific code and message for the handler to use.
type ServiceError struct {
	Err     error
	Code    string
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// NewError creates a ServiceError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Code: code, Message: message}
}

// Convenience constructors for common error types.

func NotAuthenticated(message string) *ServiceError {
	return NewError(ErrNotAuthenticated, "NOT_AUTHENTICATED", message)
}

func Unauthorized(message string) *ServiceError {
	return NewError(ErrUnauthorized, "UNAUTHORIZED", message)
}

func NetworkFailure(message string) *ServiceError {
	return NewError(ErrNetworkFailure, "NETWORK_FAILURE", message)
}

func ValidationFailure(message string) *ServiceError {
	return NewError(ErrValidationFailure, "VALIDATION_FAILURE", message)
}

func ResourceTooLarge(message string) *ServiceError {
	return NewError(ErrResourceTooLarge, "RESOURCE_TOO_LARGE", message)
}

func PreviewUnavailable(message string) *ServiceError {
	return NewError(ErrPreviewUnavailable, "PREVIEW_UNAVAILABLE", message)
}

func RetryExhausted(message string) *ServiceError {
	return NewError(ErrRetryExhausted, "RETRY_EXHAUSTED", message)
}

func NotFound(message string) *ServiceError {
	return NewError(ErrNotFound, "NOT_FOUND", message)
}

func Internal(message string) *ServiceError {
	return NewError(ErrInternal, "INTERNAL", message)
}
