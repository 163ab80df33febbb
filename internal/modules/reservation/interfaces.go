package reservation

import (
	"context"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/gateway"
)

// ReservationStore is the policy-gated persistence for booking attempts.
// Status transitions go through compare-and-set writes; a lost race
// surfaces as repository.ErrStatusConflict.
type ReservationStore interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	SetIntent(ctx context.Context, id int64, intentID string) (*domain.Reservation, error)
	FinalizePayment(ctx context.Context, id int64, next domain.ReservationStatus, rec *domain.PaymentRecord) (*domain.Reservation, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error
	AwaitingPaymentOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Reservation, error)
}

// ServiceCatalog resolves the bookable offering a reservation targets.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.TourService, error)
}

// PaymentGateway is the external processor contract (see gateway.Client).
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, currency, idempotencyKey string) (*gateway.Intent, error)
	Confirm(ctx context.Context, intentID, paymentMethod string) (*gateway.ConfirmResult, error)
	GetIntent(ctx context.Context, intentID string) (*gateway.IntentStatus, error)
}

// PaymentRecords reads back recorded gateway outcomes.
type PaymentRecords interface {
	LatestOutcome(ctx context.Context, reservationID int64) (*domain.PaymentRecord, error)
}

// NotificationSender delivers the best-effort confirmation message.
type NotificationSender interface {
	SendReservationConfirmed(ctx context.Context, r *domain.Reservation) error
}
