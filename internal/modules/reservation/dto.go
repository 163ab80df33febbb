package reservation

import (
	"strconv"
	"strings"
	"time"

	"tourmarket/internal/domain"
)

// BeginReservationRequest carries a validated booking intent from the UI
// layer. ServiceRef is "<type>-<id>", e.g. "circuit-7" or "property-12".
type BeginReservationRequest struct {
	ServiceRef   string    `json:"service_ref" binding:"required" example:"circuit-7"`
	UserID       int64     `json:"-"`
	PartySize    int       `json:"party_size" binding:"required" example:"2"`
	StartDate    time.Time `json:"start_date" binding:"required" example:"2026-10-01T00:00:00Z"`
	DurationDays int       `json:"duration_days" example:"3"`
	Notes        string    `json:"notes" example:"late arrival"`
}

type ConfirmPaymentRequest struct {
	PaymentMethodToken string `json:"payment_method_token" binding:"required" example:"pm_tok_abc123"`
}

// ConfirmResult reports the terminal outcome of a confirmation call. Both
// callers of a duplicate submission receive the same values.
type ConfirmResult struct {
	Reservation  *domain.Reservation   `json:"reservation"`
	Outcome      domain.PaymentOutcome `json:"outcome"`
	GatewayTxnID string                `json:"gateway_txn_id,omitempty"`
	// AlreadyFinal is set when this call found the reservation already
	// finalized by an earlier (or concurrent) confirmation.
	AlreadyFinal bool `json:"already_final"`
}

type ReservationDetails struct {
	Reservation *domain.Reservation   `json:"reservation"`
	LastPayment *domain.PaymentRecord `json:"last_payment,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"validation error"`
}

// ParseServiceRef splits "circuit-7" into its type and numeric id.
func ParseServiceRef(ref string) (domain.ServiceType, int64, error) {
	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		return "", 0, ErrValidation
	}

	st := domain.ServiceType(ref[:idx])
	switch st {
	case domain.ServiceProperty, domain.ServiceVehicle, domain.ServiceCircuit:
	default:
		return "", 0, ErrValidation
	}

	id, err := strconv.ParseInt(ref[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, ErrValidation
	}
	return st, id, nil
}
