package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// successJSON sends a JSON success response with a data envelope.
func successJSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, map[string]interface{}{"data": data})
}

// serviceError maps a ServiceError onto an HTTP response.
func serviceError(c echo.Context, err error) error {
	var svcErr *service.ServiceError
	if !errors.As(err, &svcErr) {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(svcErr, service.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(svcErr, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(svcErr, service.ErrValidationFailure):
		status = http.StatusBadRequest
	case errors.Is(svcErr, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(svcErr, service.ErrResourceTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(svcErr, service.ErrPreviewUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(svcErr, service.ErrNetworkFailure), errors.Is(svcErr, service.ErrRetryExhausted):
		status = http.StatusBadGateway
	}
	return Error(c, status, svcErr.Code, svcErr.Message)
}
