package repository

import (
	"context"
	"errors"
	"time"

	"tourmarket/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Read shapes for the admin list, ranked from richest to minimal. When the
// backing store denies a column or join (row-level policies differ per
// deployment), the next shape is tried and the caller learns which one
// actually served the data so it can hide fields it never received.
const (
	ShapeFull    = "full"
	ShapeMinimal = "minimal"
)

// AdminReservationRow is one row of the staff-facing list. ServiceName is
// empty when only the minimal shape succeeded.
type AdminReservationRow struct {
	ID           int64     `json:"id"`
	ServiceType  string    `json:"service_type"`
	ServiceID    int64     `json:"service_id"`
	ServiceName  string    `json:"service_name,omitempty"`
	UserID       int64     `json:"user_id"`
	PartySize    int       `json:"party_size"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (row AdminReservationRow) Reservation() domain.Reservation {
	return domain.Reservation{
		ID:           row.ID,
		ServiceType:  domain.ServiceType(row.ServiceType),
		ServiceID:    row.ServiceID,
		UserID:       row.UserID,
		PartySize:    row.PartySize,
		StartDate:    row.StartDate,
		DurationDays: row.DurationDays,
		Amount:       row.Amount,
		Currency:     row.Currency,
		Status:       domain.ReservationStatus(row.Status),
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// ListForAdmin fetches the bounded admin window, attempting the full shape
// first and degrading on permission errors. It returns the rows plus the
// shape that succeeded.
func (r *ReservationRepository) ListForAdmin(ctx context.Context, status string, limit int) ([]AdminReservationRow, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	return rankedAdminList(
		func() ([]AdminReservationRow, error) { return r.listAdminFull(ctx, status, limit) },
		func() ([]AdminReservationRow, error) { return r.listAdminMinimal(ctx, status, limit) },
	)
}

// rankedAdminList runs the query shapes richest-first. Only a permission
// denial moves to the next shape; any other failure propagates, since a
// transient error served as "minimal" would silently hide columns the
// session is allowed to read.
func rankedAdminList(full, minimal func() ([]AdminReservationRow, error)) ([]AdminReservationRow, string, error) {
	rows, err := full()
	if err == nil {
		return rows, ShapeFull, nil
	}
	if !isPermissionDenied(err) {
		return nil, "", err
	}

	rows, err = minimal()
	if err != nil {
		return nil, "", err
	}
	return rows, ShapeMinimal, nil
}

func (r *ReservationRepository) listAdminFull(ctx context.Context, status string, limit int) ([]AdminReservationRow, error) {
	q := `
SELECT r.id, r.service_type, r.service_id, COALESCE(s.name, '') AS service_name,
       r.user_id, r.party_size, r.start_date, r.duration_days,
       r.amount, r.currency, r.status, r.version, r.created_at, r.updated_at
FROM reservations r
LEFT JOIN tour_services s ON s.id = r.service_id
`
	args := []interface{}{}
	if status != "" {
		q += "WHERE r.status = ?\n"
		args = append(args, status)
	}
	q += "ORDER BY r.updated_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []AdminReservationRow
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReservationRepository) listAdminMinimal(ctx context.Context, status string, limit int) ([]AdminReservationRow, error) {
	q := `
SELECT id, service_type, service_id, user_id, party_size, start_date,
       duration_days, amount, currency, status, version, created_at, updated_at
FROM reservations
`
	args := []interface{}{}
	if status != "" {
		q += "WHERE status = ?\n"
		args = append(args, status)
	}
	q += "ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []AdminReservationRow
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// 42501 is insufficient_privilege; policy-gated stores report it when the
// session may not touch a joined table or column.
func isPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42501"
	}
	return false
}
