package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyCart is returned when checking out a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition is returned for an illegal order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrencyConflict is returned when a transaction keeps losing to
	// concurrent writers and the retry budget is exhausted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)
