package domain

import "time"

type ReservationStatus string

const (
	ReservationPending         ReservationStatus = "pending"
	ReservationAwaitingPayment ReservationStatus = "awaiting_payment"
	ReservationConfirmed       ReservationStatus = "confirmed"
	ReservationPaymentFailed   ReservationStatus = "payment_failed"
	ReservationCancelled       ReservationStatus = "cancelled"
	ReservationCompleted       ReservationStatus = "completed"
)

// Reservation is the record of one booking attempt. A new attempt always
// gets a new id; a failed payment never reuses the row of a previous try.
type Reservation struct {
	ID           int64             `json:"id"`
	ServiceType  ServiceType       `json:"service_type" validate:"required"`
	ServiceID    int64             `json:"service_id" validate:"required"`
	UserID       int64             `json:"user_id" validate:"required"`
	PartySize    int               `json:"party_size" validate:"required,gte=1"`
	StartDate    time.Time         `json:"start_date" validate:"required"`
	DurationDays int               `json:"duration_days"`
	Amount       float64           `json:"amount" validate:"gte=0"`
	Currency     string            `json:"currency"`
	Status       ReservationStatus `json:"status"`
	IntentID     string            `json:"intent_id,omitempty"`
	Notes        string            `json:"notes,omitempty" gorm:"type:text"`
	NotifiedAt   *time.Time        `json:"notified_at,omitempty"`

	// Version is the server-assigned change sequence. It increments on
	// every mutation and orders events in the realtime feed per id.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Service *TourService `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

// Terminal reports whether this attempt can no longer change through the
// payment flow. Administrative transitions (cancelled, completed) happen
// outside the orchestrator but respect the same edges.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationPaymentFailed ||
		s == ReservationCancelled || s == ReservationCompleted
}
