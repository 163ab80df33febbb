package repository

import (
	"context"
	"errors"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/realtime"

	"gorm.io/gorm"
)

var (
	// ErrStatusConflict means a compare-and-set status update lost a race:
	// the row exists but its current status is not the expected one.
	ErrStatusConflict = errors.New("reservation status conflict")
)

// ChangeFeed receives an event after every committed reservation mutation.
type ChangeFeed interface {
	Publish(ev realtime.Event)
}

type ReservationRepository struct {
	db   *gorm.DB
	feed ChangeFeed
}

func NewReservationRepository(db *gorm.DB, feed ChangeFeed) *ReservationRepository {
	return &ReservationRepository{db: db, feed: feed}
}

type reservationModel struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	ServiceType  string     `gorm:"column:service_type"`
	ServiceID    int64      `gorm:"column:service_id"`
	UserID       int64      `gorm:"column:user_id"`
	PartySize    int        `gorm:"column:party_size"`
	StartDate    time.Time  `gorm:"column:start_date"`
	DurationDays int        `gorm:"column:duration_days"`
	Amount       float64    `gorm:"column:amount"`
	Currency     string     `gorm:"column:currency"`
	Status       string     `gorm:"column:status;index"`
	IntentID     string     `gorm:"column:intent_id"`
	Notes        *string    `gorm:"column:notes"`
	NotifiedAt   *time.Time `gorm:"column:notified_at"`
	Version      int64      `gorm:"column:version"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toDomainReservation(m reservationModel) *domain.Reservation {
	var notes string
	if m.Notes != nil {
		notes = *m.Notes
	}

	return &domain.Reservation{
		ID:           m.ID,
		ServiceType:  domain.ServiceType(m.ServiceType),
		ServiceID:    m.ServiceID,
		UserID:       m.UserID,
		PartySize:    m.PartySize,
		StartDate:    m.StartDate,
		DurationDays: m.DurationDays,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Status:       domain.ReservationStatus(m.Status),
		IntentID:     m.IntentID,
		Notes:        notes,
		NotifiedAt:   m.NotifiedAt,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toReservationModel(r *domain.Reservation) reservationModel {
	var notes *string
	if r.Notes != "" {
		v := r.Notes
		notes = &v
	}

	return reservationModel{
		ID:           r.ID,
		ServiceType:  string(r.ServiceType),
		ServiceID:    r.ServiceID,
		UserID:       r.UserID,
		PartySize:    r.PartySize,
		StartDate:    r.StartDate,
		DurationDays: r.DurationDays,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Status:       string(r.Status),
		IntentID:     r.IntentID,
		Notes:        notes,
		NotifiedAt:   r.NotifiedAt,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *ReservationRepository) publish(op realtime.Op, res *domain.Reservation) {
	if r.feed == nil || res == nil {
		return
	}
	r.feed.Publish(realtime.Event{Op: op, Record: *res, Sequence: res.Version})
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	res.Version = 1
	m := toReservationModel(res)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	*res = *toDomainReservation(m)
	r.publish(realtime.OpInsert, res)
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var m reservationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainReservation(m), nil
}

// UpdateStatus applies the compare-and-set transition expected -> next. It
// returns ErrStatusConflict when the row exists but is no longer in the
// expected status; callers must re-read and stop rather than retry blindly.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.ReservationStatus) (*domain.Reservation, error) {
	res, err := r.casUpdate(ctx, r.db, id, expected, map[string]interface{}{
		"status": string(next),
	})
	if err != nil {
		return nil, err
	}
	r.publish(realtime.OpUpdate, res)
	return res, nil
}

// SetIntent records the gateway intent id while moving pending ->
// awaiting_payment in one compare-and-set write.
func (r *ReservationRepository) SetIntent(ctx context.Context, id int64, intentID string) (*domain.Reservation, error) {
	res, err := r.casUpdate(ctx, r.db, id, domain.ReservationPending, map[string]interface{}{
		"status":    string(domain.ReservationAwaitingPayment),
		"intent_id": intentID,
	})
	if err != nil {
		return nil, err
	}
	r.publish(realtime.OpUpdate, res)
	return res, nil
}

// FinalizePayment moves awaiting_payment -> next and inserts the payment
// record in one transaction, so the caller observes the pair atomically.
// A CAS loss inserts nothing and returns ErrStatusConflict.
func (r *ReservationRepository) FinalizePayment(ctx context.Context, id int64, next domain.ReservationStatus, rec *domain.PaymentRecord) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := r.casUpdate(ctx, tx, id, domain.ReservationAwaitingPayment, map[string]interface{}{
			"status": string(next),
		})
		if err != nil {
			return err
		}
		rec.ReservationID = id
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		res = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.publish(realtime.OpUpdate, res)
	return res, nil
}

// MarkNotified stamps the confirmation notification time. Only confirmed
// reservations qualify; repeating the call just refreshes the stamp.
func (r *ReservationRepository) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	res, err := r.casUpdate(ctx, r.db, id, domain.ReservationConfirmed, map[string]interface{}{
		"notified_at": at,
	})
	if err != nil {
		return err
	}
	r.publish(realtime.OpUpdate, res)
	return nil
}

func (r *ReservationRepository) casUpdate(ctx context.Context, db *gorm.DB, id int64, expected domain.ReservationStatus, updates map[string]interface{}) (*domain.Reservation, error) {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()

	tx := db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		var cnt int64
		if err := db.WithContext(ctx).Model(&reservationModel{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
			return nil, err
		}
		if cnt == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, ErrStatusConflict
	}

	var m reservationModel
	if err := db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainReservation(m), nil
}

// AwaitingPaymentOlderThan lists reservations stuck in awaiting_payment
// whose last change predates the cutoff. The reconciliation sweep feeds on
// this.
func (r *ReservationRepository) AwaitingPaymentOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	var ms []reservationModel
	tx := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(domain.ReservationAwaitingPayment), cutoff).
		Order("updated_at asc").
		Limit(limit).
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Reservation, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Reservation, error) {
	var ms []reservationModel
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Reservation, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}
