package service

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error classes that indicate a bad write rather than a broken
// backend.
const (
	pgInsufficientPrivilege = "42501"
	pgIntegrityViolation    = "23"
	pgDataException         = "22"
)

// FromBackend maps a raw data-service error onto the service taxonomy.
// Policy denials keep the backend's own message; the UI surfaces it verbatim.
func FromBackend(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgInsufficientPrivilege:
			return Unauthorized(pgErr.Message)
		case strings.HasPrefix(pgErr.Code, pgIntegrityViolation),
			strings.HasPrefix(pgErr.Code, pgDataException):
			return ValidationFailure(pgErr.Message)
		}
		return Internal(pgErr.Message)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return NetworkFailure("backend unreachable")
	}

	return NetworkFailure(err.Error())
}
