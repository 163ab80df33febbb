package adminview

import (
	"time"

	"tourmarket/internal/domain"
)

// Service is the read-only staff view over the mirror snapshot. It never
// writes to the reservation store.
type Service struct {
	mirror *Mirror
}

func NewService(mirror *Mirror) *Service {
	return &Service{mirror: mirror}
}

// Stats summarizes the mirrored reservations. Freshness metadata travels
// with the numbers so the UI can flag a stale view instead of presenting
// old data as current.
type Stats struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	ConfirmedRevenue float64        `json:"confirmed_revenue"`
	AwaitingPayment  int            `json:"awaiting_payment"`
	ReadShape        string         `json:"read_shape"`
	FeedState        ConnState      `json:"feed_state"`
	StaleSince       *time.Time     `json:"stale_since,omitempty"`
}

func (s *Service) Stats() Stats {
	rows := s.mirror.Rows()

	st := Stats{
		Total:      len(rows),
		ByStatus:   make(map[string]int),
		ReadShape:  s.mirror.Shape(),
		FeedState:  s.mirror.State(),
		StaleSince: s.mirror.StaleSince(),
	}
	for _, r := range rows {
		st.ByStatus[string(r.Status)]++
		switch r.Status {
		case domain.ReservationConfirmed, domain.ReservationCompleted:
			st.ConfirmedRevenue += r.Amount
		case domain.ReservationAwaitingPayment:
			st.AwaitingPayment++
		}
	}
	return st
}

// List filters the snapshot by status; an empty status returns everything,
// in arrival order.
func (s *Service) List(status string) []Row {
	rows := s.mirror.Rows()
	if status == "" {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if string(r.Status) == status {
			out = append(out, r)
		}
	}
	return out
}
