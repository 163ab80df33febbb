package repository

import (
	"context"
	"time"

	"tourmarket/internal/domain"

	"gorm.io/gorm"
)

type TourServiceRepository struct {
	db *gorm.DB
}

func NewTourServiceRepository(db *gorm.DB) *TourServiceRepository {
	return &TourServiceRepository{db: db}
}

type tourServiceModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	Type         string    `gorm:"column:type"`
	Name         string    `gorm:"column:name"`
	PricePerUnit float64   `gorm:"column:price_per_unit"`
	Currency     string    `gorm:"column:currency"`
	Capacity     int       `gorm:"column:capacity"`
	PartnerID    int64     `gorm:"column:partner_id"`
	Active       bool      `gorm:"column:active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (tourServiceModel) TableName() string { return "tour_services" }

func toDomainTourService(m tourServiceModel) *domain.TourService {
	return &domain.TourService{
		ID:           m.ID,
		Type:         domain.ServiceType(m.Type),
		Name:         m.Name,
		PricePerUnit: m.PricePerUnit,
		Currency:     m.Currency,
		Capacity:     m.Capacity,
		PartnerID:    m.PartnerID,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r *TourServiceRepository) GetByID(ctx context.Context, id int64) (*domain.TourService, error) {
	var m tourServiceModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainTourService(m), nil
}

func (r *TourServiceRepository) ListActive(ctx context.Context) ([]domain.TourService, error) {
	var ms []tourServiceModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]domain.TourService, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainTourService(m))
	}
	return out, nil
}
