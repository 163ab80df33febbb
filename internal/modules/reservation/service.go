package reservation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/gateway"
	"tourmarket/internal/repository"

	"gorm.io/gorm"
)

// Config tunes the orchestrator's gateway retry behaviour. Retries apply
// only to intent creation, where the idempotency key makes repeats safe;
// confirmation is never blindly retried.
type Config struct {
	MaxIntentRetries int
	RetryBackoff     time.Duration
	DefaultCurrency  string
}

func DefaultConfig() Config {
	return Config{
		MaxIntentRetries: 2,
		RetryBackoff:     500 * time.Millisecond,
		DefaultCurrency:  "USD",
	}
}

// Service drives one booking attempt end-to-end:
// pending -> awaiting_payment -> confirmed | payment_failed, with a
// best-effort notification after confirmed. Each step's persisted effect is
// acknowledged before the next begins; there is no cross-step transaction.
type Service struct {
	reservations ReservationStore
	catalog      ServiceCatalog
	payments     PaymentRecords
	gateway      PaymentGateway
	notifs       NotificationSender
	cfg          Config
	loggerf      func(format string, args ...interface{})
}

func NewService(
	reservations ReservationStore,
	catalog ServiceCatalog,
	payments PaymentRecords,
	gw PaymentGateway,
	notifs NotificationSender,
	cfg Config,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		reservations: reservations,
		catalog:      catalog,
		payments:     payments,
		gateway:      gw,
		notifs:       notifs,
		cfg:          cfg,
		loggerf:      loggerf,
	}
}

// BeginReservation validates the input and persists a pending reservation.
// Nothing is written on a validation failure. The amount computed here is
// immutable for the rest of the attempt.
func (s *Service) BeginReservation(ctx context.Context, req BeginReservationRequest) (*domain.Reservation, error) {
	serviceType, serviceID, err := ParseServiceRef(req.ServiceRef)
	if err != nil {
		return nil, err
	}

	svc, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("service lookup failed: %w", err)
	}
	if svc.Type != serviceType || !svc.Active {
		return nil, ErrValidation
	}

	if req.PartySize < 1 || req.PartySize > svc.Capacity {
		return nil, ErrValidation
	}

	duration := req.DurationDays
	if serviceType.PricedPerSeat() {
		// Circuits have a fixed itinerary; a single unit of duration.
		if duration == 0 {
			duration = 1
		}
	}
	if duration < 1 {
		return nil, ErrValidation
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if req.StartDate.Before(today) {
		return nil, ErrValidation
	}

	units := duration
	if serviceType.PricedPerSeat() {
		units = req.PartySize
	}
	amount := math.Round(svc.PricePerUnit*float64(units)*100) / 100

	currency := svc.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	r := &domain.Reservation{
		ServiceType:  serviceType,
		ServiceID:    serviceID,
		UserID:       req.UserID,
		PartySize:    req.PartySize,
		StartDate:    req.StartDate,
		DurationDays: duration,
		Amount:       amount,
		Currency:     currency,
		Status:       domain.ReservationPending,
		Notes:        req.Notes,
	}

	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	s.loggerf("level=info msg=reservation created reservation_id=%d service=%s amount=%.2f", r.ID, req.ServiceRef, amount)
	return r, nil
}

// CreatePaymentIntent asks the gateway for an intent and moves the
// reservation to awaiting_payment. The reservation id doubles as the
// idempotency key, so repeating this step cannot create two live intents.
func (s *Service) CreatePaymentIntent(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	r, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	switch r.Status {
	case domain.ReservationAwaitingPayment:
		if r.IntentID != "" {
			// Repeated call; the existing intent stands.
			return r, nil
		}
		return nil, ErrInvalidState
	case domain.ReservationPending:
	default:
		return nil, ErrInvalidState
	}

	key := fmt.Sprintf("reservation-%d", reservationID)
	intent, err := s.createIntentWithRetry(ctx, r, key)
	if err != nil {
		return nil, err
	}

	updated, err := s.reservations.SetIntent(ctx, reservationID, intent.ID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// A duplicate submission won the transition; adopt its result.
			current, rerr := s.load(ctx, reservationID)
			if rerr != nil {
				return nil, rerr
			}
			if current.Status == domain.ReservationAwaitingPayment {
				return current, nil
			}
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("record intent: %w", err)
	}
	return updated, nil
}

func (s *Service) createIntentWithRetry(ctx context.Context, r *domain.Reservation, key string) (*gateway.Intent, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxIntentRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}

		intent, err := s.gateway.CreateIntent(ctx, r.Amount, r.Currency, key)
		if err == nil {
			return intent, nil
		}
		if errors.Is(err, gateway.ErrRejected) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayRejected, err)
		}
		lastErr = err
		s.loggerf("level=warn msg=create intent attempt failed reservation_id=%d attempt=%d err=%v", r.ID, attempt, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

// ConfirmPayment submits the payment method against the reservation's
// intent and finalizes the attempt. Calling it again, including
// concurrently, reports the already-recorded outcome instead of creating a
// second payment record. A transport failure surfaces as
// ErrPaymentOutcomeUnknown and changes nothing.
func (s *Service) ConfirmPayment(ctx context.Context, reservationID int64, paymentMethodToken string) (*ConfirmResult, error) {
	r, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if out, ok, err := s.recordedOutcome(ctx, r); err != nil {
		return nil, err
	} else if ok {
		return out, nil
	}
	if r.Status != domain.ReservationAwaitingPayment || r.IntentID == "" {
		return nil, ErrInvalidState
	}

	res, err := s.gateway.Confirm(ctx, r.IntentID, paymentMethodToken)
	if err != nil {
		if errors.Is(err, gateway.ErrOutcomeUnknown) {
			s.loggerf("level=warn msg=payment outcome unknown reservation_id=%d intent_id=%s err=%v", r.ID, r.IntentID, err)
			return nil, fmt.Errorf("%w: %v", ErrPaymentOutcomeUnknown, err)
		}
		if errors.Is(err, gateway.ErrRejected) {
			// The gateway answered definitively: the attempt is over.
			return s.finalize(ctx, r, domain.PaymentFailed, "")
		}
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	outcome := domain.PaymentFailed
	if res.Outcome == gateway.OutcomeSucceeded {
		outcome = domain.PaymentSucceeded
	}
	result, err := s.finalize(ctx, r, outcome, res.GatewayTxnID)
	if err != nil {
		return nil, err
	}

	if result.Outcome == domain.PaymentSucceeded && !result.AlreadyFinal {
		if nerr := s.notifyConfirmed(ctx, result.Reservation); nerr != nil {
			s.loggerf("level=warn msg=confirmation notification failed reservation_id=%d err=%v", reservationID, nerr)
		}
	}
	return result, nil
}

// finalize applies the terminal transition plus payment record as one
// store transaction. Losing the compare-and-set race means another caller
// already finalized; the recorded outcome is reported instead.
func (s *Service) finalize(ctx context.Context, r *domain.Reservation, outcome domain.PaymentOutcome, gatewayTxnID string) (*ConfirmResult, error) {
	next := domain.ReservationPaymentFailed
	if outcome == domain.PaymentSucceeded {
		next = domain.ReservationConfirmed
	}

	rec := &domain.PaymentRecord{
		Amount:       r.Amount,
		Currency:     r.Currency,
		GatewayTxnID: gatewayTxnID,
		Outcome:      outcome,
	}

	updated, err := s.reservations.FinalizePayment(ctx, r.ID, next, rec)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			current, rerr := s.load(ctx, r.ID)
			if rerr != nil {
				return nil, rerr
			}
			out, ok, oerr := s.recordedOutcome(ctx, current)
			if oerr != nil {
				return nil, oerr
			}
			if ok {
				return out, nil
			}
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("finalize payment: %w", err)
	}

	s.loggerf("level=info msg=payment finalized reservation_id=%d outcome=%s txn_id=%s", r.ID, outcome, gatewayTxnID)
	return &ConfirmResult{Reservation: updated, Outcome: outcome, GatewayTxnID: gatewayTxnID}, nil
}

// recordedOutcome short-circuits confirmation calls that arrive after the
// attempt already reached a terminal payment status.
func (s *Service) recordedOutcome(ctx context.Context, r *domain.Reservation) (*ConfirmResult, bool, error) {
	var outcome domain.PaymentOutcome
	switch r.Status {
	case domain.ReservationConfirmed:
		outcome = domain.PaymentSucceeded
	case domain.ReservationPaymentFailed:
		outcome = domain.PaymentFailed
	default:
		return nil, false, nil
	}

	var txnID string
	if rec, err := s.payments.LatestOutcome(ctx, r.ID); err == nil && rec != nil {
		txnID = rec.GatewayTxnID
	}
	return &ConfirmResult{Reservation: r, Outcome: outcome, GatewayTxnID: txnID, AlreadyFinal: true}, true, nil
}

// Notify re-sends the confirmation message for an already confirmed
// reservation. A dispatcher failure is reported as ErrNotificationFailed
// but never touches the reservation's status.
func (s *Service) Notify(ctx context.Context, reservationID int64) error {
	r, err := s.load(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.Status != domain.ReservationConfirmed {
		return ErrInvalidState
	}
	return s.notifyConfirmed(ctx, r)
}

func (s *Service) notifyConfirmed(ctx context.Context, r *domain.Reservation) error {
	if s.notifs == nil {
		return nil
	}
	if err := s.notifs.SendReservationConfirmed(ctx, r); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	// The stamp is informational; a lost race with an admin transition is
	// not worth surfacing.
	_ = s.reservations.MarkNotified(ctx, r.ID, time.Now().UTC())
	return nil
}

// GetReservation returns the reservation plus its most recent payment
// record, if any.
func (s *Service) GetReservation(ctx context.Context, reservationID int64) (*ReservationDetails, error) {
	r, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	rec, err := s.payments.LatestOutcome(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return &ReservationDetails{Reservation: r, LastPayment: rec}, nil
}

func (s *Service) ListMyReservations(ctx context.Context, userID int64, limit, offset int) ([]domain.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}
