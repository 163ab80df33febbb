package realtime

import "tourmarket/internal/domain"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one change notification from the reservation store. Sequence is
// the record's server-assigned version; for the same reservation id a higher
// sequence always describes a fresher state, regardless of arrival order.
type Event struct {
	Op       Op                 `json:"op"`
	Record   domain.Reservation `json:"record"`
	Sequence int64              `json:"sequence"`
}
