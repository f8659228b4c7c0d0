package errors

import "errors"

var (
	// ErrNotConfigured means gateway credentials are missing or invalid.
	// Detected eagerly at startup, not on first call.
	ErrNotConfigured = errors.New("gateway not configured")
	// ErrOrderNotFound means the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound means the referenced payment does not exist.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidTransition is the state machine rejecting an illegal move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrGatewayUnavailable is a transient gateway failure surfaced after
	// the retry policy was exhausted.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrGatewayRejected is a 4xx gateway response; never retried.
	ErrGatewayRejected = errors.New("gateway rejected request")
	// ErrStaleEvent means the merge rank check discarded an out-of-order
	// delivery. Logged, not surfaced to webhook callers.
	ErrStaleEvent = errors.New("stale gateway event")
	// ErrUnknownReference means a webhook matched no local payment row.
	// Logged and acknowledged.
	ErrUnknownReference = errors.New("unknown payment reference")
	// ErrConflict means a compare-and-swap update lost against a concurrent
	// writer and retries were exhausted.
	ErrConflict = errors.New("concurrent update conflict")
)
