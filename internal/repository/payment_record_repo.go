package repository

import (
	"context"

	"tourmarket/internal/domain"

	"gorm.io/gorm"
)

type PaymentRecordRepository struct {
	db *gorm.DB
}

func NewPaymentRecordRepository(db *gorm.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *PaymentRecordRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.PaymentRecord, error) {
	var recs []domain.PaymentRecord
	tx := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at asc").
		Find(&recs)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return recs, nil
}

// LatestOutcome returns the most recent record for a reservation, or nil
// when no gateway interaction has been recorded yet.
func (r *PaymentRecordRepository) LatestOutcome(ctx context.Context, reservationID int64) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at desc").
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
