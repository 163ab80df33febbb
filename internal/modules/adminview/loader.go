package adminview

import (
	"context"

	"tourmarket/internal/repository"
)

// StoreLoader seeds the mirror straight from the reservation store using
// the degraded-read strategy: full shape when permitted, minimal otherwise.
type StoreLoader struct {
	repo  *repository.ReservationRepository
	limit int
}

func NewStoreLoader(repo *repository.ReservationRepository, limit int) *StoreLoader {
	if limit <= 0 {
		limit = 200
	}
	return &StoreLoader{repo: repo, limit: limit}
}

func (l *StoreLoader) LoadReservations(ctx context.Context) ([]repository.AdminReservationRow, string, error) {
	return l.repo.ListForAdmin(ctx, "", l.limit)
}
