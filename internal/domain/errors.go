package domain

import "errors"

// Sentinel errors for the application. Handlers map these onto HTTP status
// codes; anything unrecognized is treated as an internal error and never
// leaked to the caller verbatim.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrInvalidInput = errors.New("invalid input")

	// Messaging.
	ErrEmptyMessage        = errors.New("message cannot be empty")
	ErrInvalidParticipants = errors.New("client and provider must be different users")

	// Deletion subsystem.
	ErrQuotaExceeded  = errors.New("daily delete limit reached")
	ErrReasonTooShort = errors.New("detailed reason required")
)
