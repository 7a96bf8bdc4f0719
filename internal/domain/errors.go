package domain

import "errors"

var (
	// ErrDuplicatePosition is returned when opening a symbol that already
	// has an open position.
	ErrDuplicatePosition = errors.New("position already open")

	// ErrPositionNotFound is returned when closing or updating a symbol
	// with no open position.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPriceUnavailable marks a failed price fetch; the position's
	// evaluation is skipped for the cycle and retried on the next one.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrDiscoveryFailed marks a failed instrument-catalog fetch. The seen
	// set must not be mutated when this is returned.
	ErrDiscoveryFailed = errors.New("instrument discovery failed")

	// ErrOrderRejected is returned when the venue refuses an order.
	ErrOrderRejected = errors.New("order rejected")

	// ErrPersistence marks a failed snapshot write. It threatens
	// crash-recovery correctness and is surfaced loudly, but never
	// terminates the process.
	ErrPersistence = errors.New("persistence failed")

	// ErrNotFound is the generic missing-record error used by stores and
	// caches.
	ErrNotFound = errors.New("not found")
)
