package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidDimension    = errors.New("plot dimensions must be positive")
	ErrPositionOccupied    = errors.New("plot position already occupied")
	ErrQuotaExceeded       = errors.New("free-square quota exceeded")
	ErrPaymentRequired     = errors.New("payment required")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrPaymentMismatch     = errors.New("payment amount mismatch")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different request")
	ErrNotRefundable       = errors.New("transaction is not refundable")

	// Infra-level errors surfaced through repositories
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
