package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrConflict             = errors.New("conflicting entity already exists")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrNotRefundable        = errors.New("payment cannot be refunded")
	ErrRefundExceedsAmount  = errors.New("refund exceeds refundable amount")
	ErrInvalidSignature     = errors.New("event signature verification failed")
	ErrProvider             = errors.New("payment provider request failed")
	ErrNotPostAuthor        = errors.New("post is not authored by user")
	ErrPostNotPublished     = errors.New("post is not published")
	ErrNoPinnedPost         = errors.New("no pinned post found")

	// Infra-level errors surfaced through repositories
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrLockBusy           = errors.New("resource is locked by another worker")
)
