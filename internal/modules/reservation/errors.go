package reservation

import "errors"

var (
	// ErrValidation covers user-correctable input problems; nothing was
	// persisted when it is returned.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("reservation not found")
	// ErrInvalidState means the requested step does not apply to the
	// reservation's current status (e.g. confirming before an intent
	// exists).
	ErrInvalidState = errors.New("reservation not in a valid state for this step")
	// ErrGatewayUnavailable is transient; only the failed step should be
	// retried, never the whole flow.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected is terminal for this attempt.
	ErrGatewayRejected = errors.New("payment gateway rejected the attempt")
	// ErrPaymentOutcomeUnknown means the gateway's answer was lost. The
	// reservation stays in awaiting_payment until reconciliation learns
	// the real outcome; assuming either result here would be wrong.
	ErrPaymentOutcomeUnknown = errors.New("payment outcome unknown, confirmation pending")
	// ErrNotificationFailed is a warning, not a failure: the reservation
	// stays confirmed regardless.
	ErrNotificationFailed = errors.New("confirmation notification failed")
)
